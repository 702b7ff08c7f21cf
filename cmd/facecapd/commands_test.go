package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestUnmarshalCommand(t *testing.T) {
	threshold := 0.01
	frame := 12

	tests := []struct {
		in   string
		want Command
	}{
		{`{"type":"start"}`, CmdStart{}},
		{`{"type":"stop"}`, CmdStop{}},
		{`{"type":"clear"}`, CmdClear{}},
		{`{"type":"status"}`, CmdStatus{}},
		{`{"type":"delete_all_keys"}`, CmdDeleteAllKeys{}},
		{`{"type":"record"}`, CmdRecord{Mode: "optimized"}},
		{`{"type":"record","data":{"mode":"force"}}`, CmdRecord{Mode: "force"}},
		{`{"type":"cleanup"}`, CmdCleanup{}},
		{`{"type":"cleanup","data":{"threshold":0.01}}`, CmdCleanup{Threshold: &threshold}},
		{`{"type":"delete_keys_at","data":{"frame":12}}`, CmdDeleteKeysAt{Frame: &frame}},
		{`{"type":"add_target","data":{"name":"Face"}}`, CmdAddTarget{Name: "Face"}},
		{`{"type":"remove_target","data":{"name":"Face"}}`, CmdRemoveTarget{Name: "Face"}},
		{`{"type":"set_timelapse","data":{"enabled":true,"interval":5}}`, CmdSetTimeLapse{Enabled: true, Interval: 5}},
		{`{"type":"set_frame","data":{"frame":30}}`, CmdSetFrame{Frame: 30}},
		{`{"type":"set_threshold","data":{"threshold":0.01}}`, CmdSetThreshold{Threshold: 0.01}},
		{`{"type":"dump_curves","data":{"target":"Face"}}`, CmdDumpCurves{Target: "Face"}},
	}

	for _, tt := range tests {
		got, err := UnmarshalCommand([]byte(tt.in))
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: got %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestUnmarshalCommandErrors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`not json`, "unmarshal envelope"},
		{`{"type":"rewind"}`, "unknown command type"},
		{`{"type":"record","data":{"mode":"sometimes"}}`, "unknown mode"},
		{`{"type":"add_target"}`, "name is required"},
		{`{"type":"remove_target","data":{}}`, "name is required"},
		{`{"type":"set_frame","data":{"frame":"ten"}}`, "unmarshal set_frame"},
	}

	for _, tt := range tests {
		_, err := UnmarshalCommand([]byte(tt.in))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err=%v, want %q", tt.in, err, tt.want)
		}
	}
}

func TestMarshalCommandRoundTrip(t *testing.T) {
	frame := 3
	cmds := []Command{
		CmdStart{},
		CmdRecord{Mode: "force"},
		CmdDeleteKeysAt{Frame: &frame},
		CmdSetTimeLapse{Enabled: true, Interval: 2},
		CmdDumpCurves{},
	}
	for _, c := range cmds {
		b, err := MarshalCommand(c)
		if err != nil {
			t.Fatalf("%T: %v", c, err)
		}
		got, err := UnmarshalCommand(b)
		if err != nil {
			t.Fatalf("%T: unmarshal %s: %v", c, b, err)
		}
		if !reflect.DeepEqual(got, c) {
			t.Fatalf("got %#v, want %#v", got, c)
		}
	}
}
