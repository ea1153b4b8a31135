package cmdexec

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock of Runner. Expectations are keyed by the full command line:
//
//	r := new(cmdexec.MockRunner)
//	r.On("Run", "ip route").Return(cmdexec.Result{Stdout: "default via ..."}, nil)
type MockRunner struct {
	mock.Mock
}

// Run records the call and returns the configured result.
func (m *MockRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	call := m.Called(strings.TrimSpace(name + " " + strings.Join(args, " ")))
	return call.Get(0).(Result), call.Error(1)
}
