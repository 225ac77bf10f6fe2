package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/hekeypad/pkg/keypad"
)

func TestAppendFrame(t *testing.T) {
	f := Frame{
		Time:    1234567 * time.Microsecond,
		Tick:    1234,
		HE:      []uint16{1800, 1100, 4095},
		Digital: []bool{true, false},
	}
	assert.Equal(t, "F,1234567,1234,1800,1100,4095,10\n", string(AppendFrame(nil, f)))

	empty := Frame{Time: 5 * time.Microsecond, Tick: 0}
	assert.Equal(t, "F,5,0,\n", string(AppendFrame(nil, empty)))
}

func TestAppendEvent(t *testing.T) {
	e := Event{
		Time:  42 * time.Microsecond,
		Event: keypad.Event{Kind: keypad.Digital, Index: 3, Edge: keypad.Release, Symbol: ','},
	}
	assert.Equal(t, "E,42,d3,r,44\n", string(AppendEvent(nil, e)))

	e.Kind, e.Edge, e.Symbol = keypad.HallEffect, keypad.Press, 'z'
	assert.Equal(t, "E,42,h3,p,122\n", string(AppendEvent(nil, e)))
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    any
		wantErr bool
	}{
		{
			name: "frame",
			line: "F,1000,1,1800,1100,01",
			want: Frame{Time: time.Millisecond, Tick: 1, HE: []uint16{1800, 1100}, Digital: []bool{false, true}},
		},
		{
			name: "frame without digital keys",
			line: "F,1000,1,1800,",
			want: Frame{Time: time.Millisecond, Tick: 1, HE: []uint16{1800}, Digital: []bool{}},
		},
		{
			name: "frame with trailing whitespace",
			line: "F,1000,1,1800,1\r\n",
			want: Frame{Time: time.Millisecond, Tick: 1, HE: []uint16{1800}, Digital: []bool{true}},
		},
		{
			name: "event",
			line: "E,2000,h1,p,121",
			want: Event{Time: 2 * time.Millisecond, Event: keypad.Event{Kind: keypad.HallEffect, Index: 1, Edge: keypad.Press, Symbol: 'y'}},
		},
		{
			name: "digital release",
			line: "E,2000,d12,r,97",
			want: Event{Time: 2 * time.Millisecond, Event: keypad.Event{Kind: keypad.Digital, Index: 12, Edge: keypad.Release, Symbol: 'a'}},
		},
		{name: "unknown", line: "# booting", wantErr: true},
		{name: "empty", line: "", wantErr: true},
		{name: "short frame", line: "F,1,2", wantErr: true},
		{name: "bad timestamp", line: "F,x,1,1800,0", wantErr: true},
		{name: "bad tick", line: "F,1,-1,1800,0", wantErr: true},
		{name: "bad reading", line: "F,1,1,70000,0", wantErr: true},
		{name: "bad bits", line: "F,1,1,1800,02", wantErr: true},
		{name: "short event", line: "E,1,h1,p", wantErr: true},
		{name: "bad kind", line: "E,1,x1,p,97", wantErr: true},
		{name: "bad index", line: "E,1,h,p,97", wantErr: true},
		{name: "bad edge", line: "E,1,h1,x,97", wantErr: true},
		{name: "bad symbol", line: "E,1,h1,p,300", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	f := Frame{Time: 99 * time.Microsecond, Tick: 7, HE: []uint16{1, 2, 3, 4}, Digital: []bool{true, true, false}}
	got, err := ParseLine(string(AppendFrame(nil, f)))
	require.NoError(t, err)
	assert.Equal(t, f, got)

	e := Event{Time: 3 * time.Second, Event: keypad.Event{Kind: keypad.HallEffect, Index: 2, Edge: keypad.Release, Symbol: 'x'}}
	got, err = ParseLine(string(AppendEvent(nil, e)))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestFrameSensor(t *testing.T) {
	var s keypad.Sensor = Frame{HE: []uint16{1800}, Digital: []bool{true}}
	assert.Equal(t, uint16(1800), s.ReadHE(0))
	assert.Equal(t, uint16(0), s.ReadHE(1))
	assert.True(t, s.ReadDigital(0))
	assert.False(t, s.ReadDigital(1))
}
