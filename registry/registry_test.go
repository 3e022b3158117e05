package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	c := Default()

	desc, ok := c.Get(IDBatteryPower)
	require.True(t, ok)
	assert.Equal(t, "battery_power", desc.Name)
	assert.Equal(t, Float32, desc.Type)
	assert.False(t, desc.Writable)

	byName, ok := c.GetByName("battery_power")
	require.True(t, ok)
	assert.Equal(t, desc.ID, byName.ID)

	_, ok = c.Get(0xDEADBEEF)
	assert.False(t, ok)
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(
		Descriptor{ID: 1, Name: "a", Type: Uint8},
		Descriptor{ID: 1, Name: "b", Type: Uint8},
	)
	assert.Error(t, err)

	_, err = NewCatalog(
		Descriptor{ID: 1, Name: "a", Type: Uint8},
		Descriptor{ID: 2, Name: "a", Type: Uint8},
	)
	assert.Error(t, err)
}

func TestCatalogDescriptorsSorted(t *testing.T) {
	c := Default()
	descs := c.Descriptors()
	require.Equal(t, c.Len(), len(descs))
	for i := 1; i < len(descs); i++ {
		assert.Less(t, descs[i-1].Name, descs[i].Name)
	}
}

func TestEncodeDecodeByWireType(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptor
		value any
		bytes []byte
		back  any
	}{
		{
			name:  "float32 big endian",
			desc:  Descriptor{Name: "f", Type: Float32},
			value: float32(0.3),
			bytes: []byte{0x3E, 0x99, 0x99, 0x9A},
			back:  float32(0.3),
		},
		{
			name:  "uint8",
			desc:  Descriptor{Name: "u8", Type: Uint8},
			value: uint8(7),
			bytes: []byte{0x07},
			back:  uint8(7),
		},
		{
			name:  "uint16 big endian",
			desc:  Descriptor{Name: "u16", Type: Uint16},
			value: uint16(0x1234),
			bytes: []byte{0x12, 0x34},
			back:  uint16(0x1234),
		},
		{
			name:  "uint32 big endian",
			desc:  Descriptor{Name: "u32", Type: Uint32},
			value: uint32(0xDEADBEEF),
			bytes: []byte{0xDE, 0xAD, 0xBE, 0xEF},
			back:  uint32(0xDEADBEEF),
		},
		{
			name:  "enum as raw byte",
			desc:  Descriptor{Name: "e", Type: Enum8, Enum: map[uint8]string{2: "external"}},
			value: uint8(2),
			bytes: []byte{0x02},
			back:  uint8(2),
		},
		{
			name:  "string",
			desc:  Descriptor{Name: "s", Type: String},
			value: "RCT",
			bytes: []byte{'R', 'C', 'T'},
			back:  "RCT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.desc, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.bytes, got)

			back, err := Decode(tt.desc, tt.bytes)
			require.NoError(t, err)
			assert.Equal(t, tt.back, back)
		})
	}
}

func TestDecodeTrimsStringPadding(t *testing.T) {
	desc := Descriptor{Name: "s", Type: String}
	v, err := Decode(desc, []byte{'P', 'S', ' ', '6', '.', '0', 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, "PS 6.0", v)
}

func TestEncodeAcceptsWidenedNumbers(t *testing.T) {
	v, err := Encode(Descriptor{Name: "f", Type: Float32}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F, 0x00, 0x00, 0x00}, v)

	v, err = Encode(Descriptor{Name: "u16", Type: Uint16}, 42)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x2A}, v)
}

func TestEncodeRejectsBadValues(t *testing.T) {
	_, err := Encode(Descriptor{Name: "u8", Type: Uint8}, 300)
	assert.Error(t, err)

	_, err = Encode(Descriptor{Name: "u16", Type: Uint16}, -1)
	assert.Error(t, err)

	_, err = Encode(Descriptor{Name: "f", Type: Float32}, "nope")
	assert.Error(t, err)
}

func TestEncodeRunsValidationPredicate(t *testing.T) {
	desc, ok := Default().GetByName("soc_target_min")
	require.True(t, ok)

	_, err := Encode(desc, float32(0.2))
	assert.NoError(t, err)

	_, err = Encode(desc, float32(1.5))
	assert.Error(t, err)
}

func TestDecodeRejectsWrongWidth(t *testing.T) {
	_, err := Decode(Descriptor{Name: "f", Type: Float32}, []byte{0x01, 0x02})
	assert.Error(t, err)

	_, err = Decode(Descriptor{Name: "u16", Type: Uint16}, []byte{0x01})
	assert.Error(t, err)
}

func TestEnumLabel(t *testing.T) {
	desc, ok := Default().GetByName("power_mng_mode")
	require.True(t, ok)

	assert.Equal(t, "external", desc.Label(2))
	assert.Equal(t, "9", desc.Label(9))
}
