package override

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lucas-albers-lz4/ciprep/pkg/chart"
	"github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/testutil"
	"github.com/lucas-albers-lz4/ciprep/pkg/values"
)

type mockLocator struct {
	mock.Mock
}

func (m *mockLocator) FindSectionDir(chartRoot, section string) (string, error) {
	args := m.Called(chartRoot, section)
	return args.String(0), args.Error(1)
}

func (m *mockLocator) LoadImageTags(dir string) (map[string]string, error) {
	args := m.Called(dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func TestBuild(t *testing.T) {
	locator := new(mockLocator)
	locator.On("FindSectionDir", "/chart", "core").Return("/chart/charts/core", nil)
	locator.On("LoadImageTags", "/chart/charts/core").Return(map[string]string{"upf": "v1", "smf": "v2"}, nil)
	locator.On("FindSectionDir", "/chart", "extra").Return("/chart/charts/extra", nil)
	locator.On("LoadImageTags", "/chart/charts/extra").Return(map[string]string{}, nil)
	locator.On("FindSectionDir", "/chart", "config-only").Return("", chart.ErrSectionNotFound)

	doc, err := NewBuilder(locator).Build([]string{"core", "extra", "config-only"}, "/chart", "upf", "local:test", "mirror.example.org/")
	require.NoError(t, err)
	locator.AssertExpectations(t)

	assert.Equal(t, []string{"core"}, doc.Sections())
	assert.True(t, doc.TargetApplied())
	tags, ok := doc.Tags("core")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"upf": "local:test", "smf": "mirror.example.org/v2"}, tags)

	_, ok = doc.Tags("extra")
	assert.False(t, ok)
}

func TestBuildRepositoryAlwaysEmpty(t *testing.T) {
	locator := new(mockLocator)
	locator.On("FindSectionDir", "/chart", "core").Return("/chart/core", nil)
	locator.On("LoadImageTags", "/chart/core").Return(map[string]string{"smf": "omecproject/smf:v2"}, nil)

	doc, err := NewBuilder(locator).Build([]string{"core"}, "/chart", "absent", "local:test", "mirror.gcr.io/")
	require.NoError(t, err)
	assert.False(t, doc.TargetApplied())

	node := doc.Node()
	repo := values.Lookup(node, "core", "images", "repository")
	require.NotNil(t, repo)
	assert.Equal(t, "", repo.Value)
	assert.Equal(t, "mirror.gcr.io/omecproject/smf:v2", values.Lookup(node, "core", "images", "tags", "smf").Value)
}

func TestBuildPropagatesFatalErrors(t *testing.T) {
	t.Run("ambiguous section", func(t *testing.T) {
		locator := new(mockLocator)
		ambiguous := &chart.AmbiguityError{Kind: chart.ErrAmbiguousSection, Name: "core", Candidates: []string{"/a/core", "/b/core"}}
		locator.On("FindSectionDir", "/chart", "core").Return("", ambiguous)

		_, err := NewBuilder(locator).Build([]string{"core"}, "/chart", "upf", "local:test", "")
		require.ErrorIs(t, err, ErrSectionLookup)
		assert.ErrorIs(t, err, chart.ErrAmbiguousSection)
	})

	t.Run("unreadable tags", func(t *testing.T) {
		locator := new(mockLocator)
		locator.On("FindSectionDir", "/chart", "core").Return("/chart/core", nil)
		locator.On("LoadImageTags", "/chart/core").Return(nil, errors.New("boom"))

		_, err := NewBuilder(locator).Build([]string{"core"}, "/chart", "upf", "local:test", "")
		assert.ErrorIs(t, err, ErrTagLoad)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := NewBuilder(new(mockLocator)).Build([]string{"core"}, "/chart", "", "local:test", "")
		assert.ErrorIs(t, err, ErrEmptyTarget)
	})
}

func TestBuildWarnsOnSkippedSections(t *testing.T) {
	locator := new(mockLocator)
	locator.On("FindSectionDir", "/chart", "nochart").Return("", chart.ErrSectionNotFound)

	output, err := testutil.CaptureLogOutput(log.LevelWarn, func() {
		doc, buildErr := NewBuilder(locator).Build([]string{"nochart"}, "/chart", "upf", "local:test", "")
		require.NoError(t, buildErr)
		assert.True(t, doc.Empty())
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Skipping section without subchart")
	assert.Contains(t, output, "Target image not declared")
}

func TestBuildWithIntrospector(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteTree(t, fs, "/pull/sd-core", map[string]string{
		"charts/bess-upf/values.yaml":         "images:\n  tags:\n    bess: omecproject/upf-epc-bess:rel-1\n    pfcpiface: omecproject/upf-epc-pfcpiface:rel-1\n",
		"charts/5g-control-plane/values.yaml": "images:\n  tags:\n    amf: omecproject/5gc-amf:rel-2\n",
	})

	doc, err := NewBuilder(chart.NewIntrospector(fs)).Build(
		[]string{"omec-user-plane", "5g-control-plane"}, "/pull/sd-core", "bess", "upf-epc-bess:ci", "mirror.gcr.io/")
	require.NoError(t, err)

	out, err := doc.ToYAML()
	require.NoError(t, err)
	assert.Equal(t, `omec-user-plane:
  images:
    repository: ""
    tags:
      bess: upf-epc-bess:ci
      pfcpiface: mirror.gcr.io/omecproject/upf-epc-pfcpiface:rel-1
5g-control-plane:
  images:
    repository: ""
    tags:
      amf: mirror.gcr.io/omecproject/5gc-amf:rel-2
`, string(out))
}

func TestNodeQuotesNumericLookingTags(t *testing.T) {
	doc := &Document{sections: []SectionOverride{{Section: "s", Tags: map[string]string{"a": "1.5"}}}}
	out, err := doc.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `a: "1.5"`)
}
