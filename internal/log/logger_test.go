package log

import (
	"strings"
	"testing"
)

func TestWithComponentAddsField(t *testing.T) {
	var sb strings.Builder
	l := WithComponent("transport").Output(&sb)
	l.Info().Msg("hello")
	if !strings.Contains(sb.String(), `"component":"transport"`) {
		t.Fatalf("expected component field in %q", sb.String())
	}
}
