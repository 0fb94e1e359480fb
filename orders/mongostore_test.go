package orders

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	errWriteConflict = mongo.CommandError{
		Code:   112,
		Labels: []string{"TransientTransactionError"},
	}
	errUnknownCommit = mongo.CommandError{
		Labels: []string{"UnknownTransactionCommitResult"},
	}
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"write conflict", errWriteConflict, true},
		{"unknown commit result", errUnknownCommit, false},
		{"non-transient server error", mongo.CommandError{Code: 11000}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isTransient(tc.err); got != tc.want {
				t.Errorf("isTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUnknownCommit(t *testing.T) {
	if isUnknownCommit(errWriteConflict) {
		t.Error("write conflict should not count as an unknown commit")
	}
	if !isUnknownCommit(errUnknownCommit) {
		t.Error("UnknownTransactionCommitResult label not detected")
	}
	if isUnknownCommit(errors.New("boom")) {
		t.Error("plain error should not count as an unknown commit")
	}
}

func TestRetryTxnBody_ExhaustsIntoConflict(t *testing.T) {
	attempts := 0
	err := retryTxnBody(context.Background(), func() error {
		attempts++
		return errWriteConflict
	})
	if attempts != maxTxnAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxTxnAttempts)
	}
	if !errors.Is(err, ErrTransactionConflict) {
		t.Errorf("err = %v, want ErrTransactionConflict", err)
	}
}

func TestRetryTxnBody_NonTransientReturnsImmediately(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	err := retryTxnBody(context.Background(), func() error {
		attempts++
		return boom
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRetryTxnBody_RecoversAfterConflict(t *testing.T) {
	attempts := 0
	err := retryTxnBody(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errWriteConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryTxnBody: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

// A commit whose outcome is unknown must be re-issued without re-running
// the transaction body. The body attempt counter stays at one while the
// commit is retried to success.
func TestRetryCommit_DoesNotRerunBody(t *testing.T) {
	bodyRuns := 0
	commits := 0
	err := retryTxnBody(context.Background(), func() error {
		bodyRuns++
		return retryCommit(context.Background(), func() error {
			commits++
			if commits < 3 {
				return errUnknownCommit
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if bodyRuns != 1 {
		t.Errorf("body ran %d times, want 1", bodyRuns)
	}
	if commits != 3 {
		t.Errorf("commit issued %d times, want 3", commits)
	}
}

func TestRetryCommit_ExhaustsIntoConflict(t *testing.T) {
	commits := 0
	err := retryCommit(context.Background(), func() error {
		commits++
		return errUnknownCommit
	})
	if commits != maxTxnAttempts {
		t.Errorf("commits = %d, want %d", commits, maxTxnAttempts)
	}
	if !errors.Is(err, ErrTransactionConflict) {
		t.Errorf("err = %v, want ErrTransactionConflict", err)
	}
}
