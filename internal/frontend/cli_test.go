package frontend

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmParsesYesNoCancel(t *testing.T) {
	cases := []struct {
		input      string
		cancelable bool
		want       Answer
	}{
		{"y\n", false, AnswerYes},
		{"yes\n", false, AnswerYes},
		{"\n", false, AnswerNo},
		{"n\n", false, AnswerNo},
		{"c\n", true, AnswerCancel},
		{"c\n", false, AnswerNo}, // cancel offered only when cancelable
	}
	for _, tc := range cases {
		var out, errOut bytes.Buffer
		c := NewCLI(strings.NewReader(tc.input), &out, &errOut)
		if got := c.Confirm("save?", tc.cancelable); got != tc.want {
			t.Fatalf("Confirm(%q, %v) = %v, want %v", tc.input, tc.cancelable, got, tc.want)
		}
	}
}

func TestShowErrorAndWarnWriteToErrStream(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewCLI(strings.NewReader(""), &out, &errOut)
	c.ShowError(errString("boom"))
	c.Warn("be careful")
	if !strings.Contains(errOut.String(), "boom") {
		t.Fatalf("ShowError did not write to the error stream: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "be careful") {
		t.Fatalf("Warn did not write to the error stream: %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("stdout should stay clean, got %q", out.String())
	}
}

type errString string

func (e errString) Error() string { return string(e) }
