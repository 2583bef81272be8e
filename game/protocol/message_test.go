package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
)

func TestParse_Update(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"update","index":10,"value":1}`))
	require.NoError(t, err)

	upd, ok := msg.(Update)
	require.True(t, ok, "expected Update, got %T", msg)
	assert.Equal(t, 10, upd.Index)
	assert.Equal(t, grid.Cell(1), upd.Value)
	assert.Equal(t, KindUpdate, upd.Kind())
}

func TestParse_UpdateNegativeIndexIsWellFormed(t *testing.T) {
	// Range checking belongs to the grid, not the parser.
	msg, err := Parse([]byte(`{"type":"update","index":-1,"value":0}`))
	require.NoError(t, err)
	assert.Equal(t, Update{Index: -1, Value: 0}, msg)
}

func TestParse_Reset(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"reset","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, Reset{}, msg)
}

func TestParse_Init(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"init","state":[0,1,1,0]}`))
	require.NoError(t, err)

	init, ok := msg.(Init)
	require.True(t, ok)
	assert.Equal(t, []grid.Cell{0, 1, 1, 0}, init.State)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `hello`, ErrMalformed},
		{"truncated", `{"type":"reset"`, ErrMalformed},
		{"array", `[1,2,3]`, ErrMalformed},
		{"missing type", `{"index":1,"value":1}`, ErrMalformed},
		{"numeric type", `{"type":7}`, ErrMalformed},
		{"unknown type", `{"type":"paint"}`, ErrUnknownType},
		{"missing index", `{"type":"update","value":1}`, ErrMalformed},
		{"missing value", `{"type":"update","index":1}`, ErrMalformed},
		{"string index", `{"type":"update","index":"1","value":1}`, ErrMalformed},
		{"fractional index", `{"type":"update","index":1.5,"value":1}`, ErrMalformed},
		{"null value", `{"type":"update","index":1,"value":null}`, ErrMalformed},
		{"bool value", `{"type":"update","index":1,"value":true}`, ErrMalformed},
		{"huge index", `{"type":"update","index":99999999999,"value":1}`, ErrMalformed},
		{"init without state", `{"type":"init"}`, ErrMalformed},
		{"init with strings", `{"type":"init","state":["a"]}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.raw))
			assert.Nil(t, msg)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"update", Update{Index: 10, Value: 1}, `{"type":"update","index":10,"value":1}`},
		{"reset", Reset{}, `{"type":"reset"}`},
		{"init", Init{State: []grid.Cell{0, 1}}, `{"type":"init","state":[0,1]}`},
		{"empty init", Init{}, `{"type":"init","state":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncode_InitStateIsArray(t *testing.T) {
	data, err := Encode(Init{State: make([]grid.Cell, 2500)})
	require.NoError(t, err)

	var decoded struct {
		State []int `json:"state"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.State, 2500)
}
