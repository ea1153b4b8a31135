package helm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPuller implements Puller for testing. Use Run on the expectation to materialize a chart:
//
//	p := new(helm.MockPuller)
//	p.On("Pull", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
//	    req := args.Get(1).(helm.PullRequest)
//	    // write req.DestDir/sd-core/...
//	}).Return(nil)
type MockPuller struct {
	mock.Mock
}

// Pull records the call and returns the configured error.
func (m *MockPuller) Pull(ctx context.Context, req PullRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
