package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
input:
  uri: ""
  map:
    db: srt
    col: map_kashiwanoha
    file: data/map.pb
control:
  step:
    start: 0
    total: 400
    interval: 0.05
scenario:
  entities:
    - name: ego
      kind: ego
      pose: {lanelet_id: 34741, s: 0}
      target_speed: 10
    - name: npc1
      kind: vehicle
      pose: {lanelet_id: 34741, s: 20}
      random_s: {lower: 15, upper: 25}
  conditions:
    - name: ego_reached
      type: reach_position
      triggering_entities: [ego]
      tolerance: 1
      position:
        lane: {lanelet_id: 34741, s: 50}
      success: true
  traffic_lights:
    - id: 34836
      bulbs: ["red solidOn circle"]
monitor:
  interval: 0.5
`

func TestLoadConfig(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	assert.Equal(t, "data/map.pb", c.Input.Map.File)
	assert.Equal(t, "srt.map_kashiwanoha.pb", c.Input.Map.GetCachePath())
	require.Len(t, c.Scenario.Entities, 2)
	require.NotNil(t, c.Scenario.Entities[0].TargetSpeed)
	assert.Equal(t, 10.0, *c.Scenario.Entities[0].TargetSpeed)
	require.NotNil(t, c.Scenario.Entities[1].RandomS)
	require.NotNil(t, c.Scenario.Conditions[0].Position.Lane)
	assert.Equal(t, int64(34741), c.Scenario.Conditions[0].Position.Lane.LaneletID)

	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, rc.MonitorInterval)
	assert.Equal(t, uint64(1), rc.C.Seed)
}

func TestRejectUnknownField(t *testing.T) {
	var c config.Config
	assert.Error(t, yaml.UnmarshalStrict([]byte("control: {steps: 1}"), &c))
}

func TestRejectBadInterval(t *testing.T) {
	_, err := config.NewRuntimeConfig(config.Config{Control: config.Control{Step: config.ControlStep{Total: 1}}})
	assert.Error(t, err)
}
