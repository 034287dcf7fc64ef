package input

import (
	"os"
	"path/filepath"
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/entity/hdmap/hdmaptest"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
)

func TestValidate(t *testing.T) {
	require.NoError(t, validate(hdmaptest.Map()))

	assert.Error(t, validate(nil))
	assert.Error(t, validate(&mapv2.Map{}))

	dup := hdmaptest.Clone()
	dup.Lanes = append(dup.Lanes, dup.Lanes[0])
	assert.ErrorContains(t, validate(dup), "duplicated lane id")

	dangling := hdmaptest.Clone()
	dangling.Junctions[0].LaneIds = append(dangling.Junctions[0].LaneIds, 1)
	assert.ErrorContains(t, validate(dangling), "unknown lane 1")
}

func TestInitWithoutSource(t *testing.T) {
	_, err := Init(config.Input{Map: config.InputPath{DB: "srt", Col: "map"}}, "")
	assert.Error(t, err)
}

func TestInitMissingFile(t *testing.T) {
	_, err := Init(config.Input{Map: config.InputPath{File: filepath.Join(t.TempDir(), "absent.pb")}}, "")
	assert.Error(t, err)
}

func TestPreCheckCache(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, preCheckCache(dir))
	assert.False(t, preCheckCache(""))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.False(t, preCheckCache(file))
	assert.False(t, preCheckCache(filepath.Join(dir, "missing")))
}
