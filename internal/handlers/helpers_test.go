package handlers

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/mock/gomock"

	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/mocks"
)

type fakeTriggers struct {
	err      error
	recorded []events.EventData
}

func (f *fakeTriggers) UpsertEventTrigger(_ context.Context, data events.EventData) error {
	f.recorded = append(f.recorded, data)
	return f.err
}

type fakeAllowlist struct {
	err error
	set map[string]string
}

func (f *fakeAllowlist) SetNamespaceStatus(_ context.Context, namespace, status string) error {
	if f.err != nil {
		return f.err
	}
	if f.set == nil {
		f.set = make(map[string]string)
	}
	f.set[namespace] = status
	return nil
}

type fakeIdentity struct {
	linked bool
	err    error
}

func (f *fakeIdentity) IsIdentityLinked(context.Context, string) (bool, error) {
	return f.linked, f.err
}

type fakeCloner struct {
	path    string
	err     error
	cleaned bool
	lastURL string
	lastRef string
}

func (f *fakeCloner) Clone(_ context.Context, url, ref string) (string, func(), error) {
	f.lastURL, f.lastRef = url, ref
	if f.err != nil {
		return "", func() {}, f.err
	}
	return f.path, func() { f.cleaned = true }, nil
}

// testDeps wires a mocked project resolver and no-op fakes for
// everything else. Individual tests swap in specialized fakes.
func testDeps(ctrl *gomock.Controller) (Deps, *mocks.MockProject) {
	project := mocks.NewMockProject(ctrl)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ProjectFor(gomock.Any(), gomock.Any()).Return(project, nil).AnyTimes()

	deps := Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Projects:  resolver,
		Allowlist: &fakeAllowlist{},
		Triggers:  &fakeTriggers{},
		Identity:  &fakeIdentity{},
		Cloner:    &fakeCloner{path: "/tmp/checkout"},
	}
	return deps, project
}
