package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	testCases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  New(PhaseResolve, KindUnknownID).Build(),
			want: "[resolve] unknown_id",
		},
		{
			name: "with detail",
			err:  New(PhaseResolve, KindUnknownID).Detail("received invalid type id %d", 255).Build(),
			want: "[resolve] unknown_id: received invalid type id 255",
		},
		{
			name: "with type and cause",
			err: New(PhaseResolve, KindLoadFailure).
				Type("Join").
				Detail("failed to lazy-load type").
				Cause(fmt.Errorf("boom")).
				Build(),
			want: "[resolve] load_failure (Join): failed to lazy-load type: boom",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := New(PhasePack, KindPayloadTooLarge).Detail("too big").Build()
	wrapped := fmt.Errorf("send failed: %w", err)

	if !stderrors.Is(wrapped, ErrPayloadTooLarge) {
		t.Errorf("expected wrapped error to match ErrPayloadTooLarge")
	}
	if stderrors.Is(wrapped, ErrCodecNotBound) {
		t.Errorf("did not expect wrapped error to match ErrCodecNotBound")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := New(PhaseResolve, KindLoadFailure).Cause(cause).Build()

	if !stderrors.Is(err, cause) {
		t.Errorf("expected error to unwrap to its cause")
	}
}

func TestIsConfiguration(t *testing.T) {
	configKinds := []Kind{KindDuplicateID, KindAlreadyInitialized, KindMissingScheduler, KindInvalidConfig, KindUnsupported}
	for _, kind := range configKinds {
		err := fmt.Errorf("wrapped: %w", New(PhaseRegister, kind).Build())
		if !IsConfiguration(err) {
			t.Errorf("expected %s to be a configuration error", kind)
		}
	}

	runtimeKinds := []Kind{KindUnknownID, KindLoadFailure, KindInvalidExport, KindNotConfigured, KindPayloadTooLarge, KindCodecNotBound, KindInvalidData, KindHandler}
	for _, kind := range runtimeKinds {
		if IsConfiguration(New(PhaseUnpack, kind).Build()) {
			t.Errorf("did not expect %s to be a configuration error", kind)
		}
	}

	if IsConfiguration(nil) || IsConfiguration(fmt.Errorf("plain")) {
		t.Errorf("plain errors are not configuration errors")
	}
}
