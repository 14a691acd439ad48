package asset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/satlaunch/payloadledger/internal/errors"
)

func TestNewBookedAsset(t *testing.T) {
	a := New(Details{ID: "p1", Owner: "alice", FrequencyBand: "2GHz", CubesatSize: "2U", Mass: "2kg"}, "alice")

	assert.Equal(t, "p1", a.AssetID)
	assert.Equal(t, "alice", a.Owner)
	assert.Equal(t, NoLauncher, a.Launcher)
	assert.Equal(t, StateCreated, a.State)
	assert.Equal(t, "alice", a.ModifiedBy)
}

func TestMarshalWireForm(t *testing.T) {
	a := New(Details{ID: "p1", Owner: "alice", FrequencyBand: "2GHz", CubesatSize: "2U", Mass: "2kg"}, "alice")

	data, err := a.Marshal()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Len(t, wire, 8)
	for _, key := range []string{"assetId", "owner", "launcher", "frequencyBand", "cubesatSize", "mass", "currentAssetState", "modifiedBy"} {
		assert.Contains(t, wire, key)
	}
	assert.EqualValues(t, 1, wire["currentAssetState"])
}

func TestRoundTrip(t *testing.T) {
	states := []State{StateCreated, StateDetailsVerified, StateDetailsModified, StateInTransit, StateReceived, StateClearForFlight, StateClosed}

	for _, st := range states {
		t.Run(st.String(), func(t *testing.T) {
			in := &Asset{
				AssetID:       "payload-" + st.String(),
				Owner:         "alice",
				Launcher:      "bob",
				FrequencyBand: "S-band",
				CubesatSize:   "3U",
				Mass:          "4.2kg",
				State:         st,
				ModifiedBy:    "bob",
			}
			data, err := in.Marshal()
			require.NoError(t, err)

			out, err := Unmarshal(in.AssetID, data)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestMarshalRejectsInvalidState(t *testing.T) {
	_, err := (&Asset{AssetID: "p1", State: 9}).Marshal()
	assert.Error(t, err)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "not-json"},
		{name: "state out of range", data: `{"assetId":"p1","currentAssetState":8}`},
		{name: "state missing", data: `{"assetId":"p1"}`},
		{name: "id missing", data: `{"currentAssetState":1}`},
		{name: "state as string", data: `{"assetId":"p1","currentAssetState":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal("p1", []byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrSerialization)
		})
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	a, err := Unmarshal("p1", []byte(`{"assetId":"p1","owner":"alice","currentAssetState":4,"event_type":"createPayload"}`))
	require.NoError(t, err)
	assert.Equal(t, StateInTransit, a.State)
}

func TestDetailsValidate(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		wantErr bool
	}{
		{name: "valid", details: Details{ID: "p1", Owner: "alice", CubesatSize: "2U"}},
		{name: "size optional", details: Details{ID: "p1", Owner: "alice"}},
		{name: "missing id", details: Details{Owner: "alice"}, wantErr: true},
		{name: "blank id", details: Details{ID: "  ", Owner: "alice"}, wantErr: true},
		{name: "missing owner", details: Details{ID: "p1"}, wantErr: true},
		{name: "unknown size", details: Details{ID: "p1", Owner: "alice", CubesatSize: "5U"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseDetails(t *testing.T) {
	d, err := ParseDetails([]byte(`{"id":"p1","owner":"alice","frequencyBand":"2GHz","cubesatSize":"2U","mass":"2kg"}`))
	require.NoError(t, err)
	assert.Equal(t, Details{ID: "p1", Owner: "alice", FrequencyBand: "2GHz", CubesatSize: "2U", Mass: "2kg"}, d)

	_, err = ParseDetails([]byte(`{`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseDetailsSchema(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "partial document", doc: `{"owner":"alice"}`},
		{name: "unknown fields allowed", doc: `{"id":"p1","note":"fragile"}`},
		{name: "numeric mass", doc: `{"id":"p1","mass":2}`, wantErr: "$.mass"},
		{name: "array", doc: `["p1"]`, wantErr: "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDetails([]byte(tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLEAR_FOR_FLIGHT", StateClearForFlight.String())
	assert.Equal(t, "State(0)", State(0).String())
}

func TestInSequence(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateCreated, StateDetailsVerified, true},
		{StateDetailsVerified, StateInTransit, true},
		{StateDetailsModified, StateInTransit, true},
		{StateInTransit, StateReceived, true},
		{StateReceived, StateClearForFlight, true},
		{StateCreated, StateInTransit, false},
		{StateCreated, StateClearForFlight, false},
		{StateClearForFlight, StateReceived, false},
		{StateReceived, StateDetailsModified, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, InSequence(tt.from, tt.to))
		})
	}
}
