package envutil

import (
	"testing"
	"time"
)

func TestTypedLookups(t *testing.T) {
	t.Setenv("CS_PORT", " 9090 ")
	t.Setenv("CS_BAD_INT", "nine")
	t.Setenv("CS_RATIO", "0.25")
	t.Setenv("CS_FLAG", "Off")
	t.Setenv("CS_TTL", "45")
	t.Setenv("CS_TTL_STR", "2m")
	t.Setenv("CS_BLANK", "   ")

	if got := Int("CS_PORT", 1); got != 9090 {
		t.Fatalf("Int: want=9090 got=%d", got)
	}
	if got := Int("CS_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
	if got := Float("CS_RATIO", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	if got := Bool("CS_FLAG", true); got {
		t.Fatalf("Bool: want=false got=%v", got)
	}
	if got := Bool("CS_UNSET_FLAG", true); !got {
		t.Fatalf("Bool default: want=true")
	}
	if got := Duration("CS_TTL", time.Second); got != 45*time.Second {
		t.Fatalf("Duration seconds: want=45s got=%v", got)
	}
	if got := Duration("CS_TTL_STR", time.Second); got != 2*time.Minute {
		t.Fatalf("Duration string: want=2m got=%v", got)
	}
	if got := String("CS_BLANK", "def"); got != "def" {
		t.Fatalf("String blank: want=def got=%q", got)
	}
}
