package op

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagegrid/pagegrid/internal/types"
)

func TestValidate_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"valid add", NewAdd("e1", types.Widget{ID: "w", Type: "t"}, "main", 0), false},
		{"add missing slot", Operation{Kind: KindAddWidget, EntityID: "e1", Add: &AddWidget{ID: "w", Type: "t"}}, true},
		{"add negative order", Operation{Kind: KindAddWidget, EntityID: "e1", Add: &AddWidget{ID: "w", Type: "t", Slot: "main", Order: -1}}, true},
		{"add nil payload", Operation{Kind: KindAddWidget, EntityID: "e1"}, true},
		{"valid remove", NewRemove("e1", "w"), false},
		{"remove empty id", Operation{Kind: KindRemoveWidget, EntityID: "e1", Remove: &RemoveWidget{}}, true},
		{"valid move", NewMove("e1", "w", "main", 1, 0), false},
		{"move negative index", NewMove("e1", "w", "main", -1, 0), true},
		{"valid config update", NewUpdateConfig("e1", "w", "main", json.RawMessage(`{}`)), false},
		{"valid reload", NewReload("slot_config_changed", nil), false},
		{"reload without reason", Operation{Kind: KindReloadData, Reload: &ReloadData{}}, true},
		{"missing entity id", Operation{Kind: KindRemoveWidget, Remove: &RemoveWidget{ID: "w"}}, true},
		{"unknown kind", Operation{Kind: "EXPLODE", EntityID: "e1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	env := Envelope{
		Kind:     KindAddWidget,
		EntityID: "e1",
		Payload:  json.RawMessage(`{"id":"w1","type":"core_widgets.ContentWidget","slot":"main","order":2,"config":{"title":"A"}}`),
	}
	o, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, KindAddWidget, o.Kind)
	require.NotNil(t, o.Add)
	assert.Equal(t, "w1", o.Add.ID)
	assert.Equal(t, 2, o.Add.Order)
	assert.Equal(t, "w1", o.WidgetID())
	assert.Equal(t, "main", o.Slot())
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode(Envelope{Kind: "WIBBLE", EntityID: "e1"})
	var bad *BadPayloadError
	require.ErrorAs(t, err, &bad)
}

func TestDecode_InvalidPayloadJSON(t *testing.T) {
	_, err := Decode(Envelope{
		Kind:     KindMoveWidget,
		EntityID: "e1",
		Payload:  json.RawMessage(`{"id":`),
	})
	require.Error(t, err)
}

func TestWidgetID_Reload(t *testing.T) {
	assert.Equal(t, "", NewReload("x", nil).WidgetID())
}
