package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
	}{
		{
			name:    "welcome",
			payload: `{"type":"welcome","message":"hi"}`,
			want:    Welcome{Message: "hi"},
		},
		{
			name:    "led with brightness",
			payload: `{"type":"led_control","action":"on","brightness":40,"from_user":"alice"}`,
			want:    LedControl{Action: "on", Brightness: 40, FromUser: "alice"},
		},
		{
			name:    "led default brightness",
			payload: `{"type":"led_control","action":"on"}`,
			want:    LedControl{Action: "on", Brightness: 100},
		},
		{
			name:    "led null brightness",
			payload: `{"type":"led_control","action":"on","brightness":null}`,
			want:    LedControl{Action: "on", Brightness: 100},
		},
		{
			name:    "led string brightness falls back",
			payload: `{"type":"led_control","action":"on","brightness":"dim"}`,
			want:    LedControl{Action: "on", Brightness: 100},
		},
		{
			name:    "servo angles",
			payload: `{"type":"servo_control","action":"move_legs","left_angle":200,"right_angle":-5}`,
			want:    ServoControl{Action: "move_legs", LeftAngle: 200, RightAngle: -5, Angle: 90},
		},
		{
			name:    "servo fractional angle truncates",
			payload: `{"type":"servo_control","action":"move_left","left_angle":45.7}`,
			want:    ServoControl{Action: "move_left", LeftAngle: 45, RightAngle: 90, Angle: 90},
		},
		{
			name:    "servo legacy angle applies to both legs",
			payload: `{"type":"servo_control","action":"move_legs","angle":30}`,
			want:    ServoControl{Action: "move_legs", LeftAngle: 30, RightAngle: 30, Angle: 30},
		},
		{
			name:    "oled default content",
			payload: `{"type":"oled_control","action":"text"}`,
			want:    OledControl{Action: "text"},
		},
		{
			name:    "astrbot message",
			payload: `{"type":"astrbot_message","platform":"qq","sender_name":"bob","message_text":"开灯","is_private":true}`,
			want:    AstrMessage{Platform: "qq", SenderName: "bob", MessageText: "开灯", IsPrivate: true},
		},
		{
			name:    "custom command",
			payload: `{"type":"custom_command","command":"status","from_user":"root"}`,
			want:    CustomCommand{Command: "status", FromUser: "root"},
		},
		{
			name:    "heartbeat ack",
			payload: `{"type":"heartbeat_ack"}`,
			want:    HeartbeatAck{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.payload))
			if got != tt.want {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Unroutable(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		rawType string
	}{
		{"not json", `not json`, ""},
		{"array", `[1,2]`, ""},
		{"null", `null`, ""},
		{"missing type", `{"action":"on"}`, ""},
		{"empty type", `{"type":""}`, ""},
		{"numeric type", `{"type":7}`, ""},
		{"unknown type", `{"type":"dance_control"}`, "dance_control"},
		{"case sensitive type", `{"type":"LED_CONTROL"}`, "LED_CONTROL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.payload))
			u, ok := got.(Unknown)
			if !ok {
				t.Fatalf("Decode() = %#v, want Unknown", got)
			}
			if u.RawType != tt.rawType {
				t.Errorf("RawType = %q, want %q", u.RawType, tt.rawType)
			}
			if u.Reason == "" {
				t.Error("Reason should be set")
			}
		})
	}
}

func TestOutbound_StatusShape(t *testing.T) {
	data, err := NewStatusMessage("walker_001", "connected", 1234).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "status" || m["status"] != "connected" || m["device_id"] != "walker_001" {
		t.Errorf("unexpected payload: %s", data)
	}
	if m["timestamp"] != float64(1234) {
		t.Errorf("timestamp = %v, want 1234", m["timestamp"])
	}
}

func TestOutbound_HeartbeatHasNoStatus(t *testing.T) {
	data, err := NewHeartbeatMessage("walker_001", 99).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "heartbeat" {
		t.Errorf("type = %v, want heartbeat", m["type"])
	}
	if _, ok := m["status"]; ok {
		t.Errorf("heartbeat should not carry a status: %s", data)
	}
	if m["device_id"] != "walker_001" || m["timestamp"] != float64(99) {
		t.Errorf("unexpected payload: %s", data)
	}
}
