package uplink

// one tagged unit of server-directed client work within a reply batch.
// only the fields relevant to the type tag are populated.
type Instruction struct {
	Type     string         `json:"type"`
	Id       string         `json:"id,omitempty"`
	Url      string         `json:"url,omitempty"`
	Form     map[string]any `json:"form,omitempty"`
	Interval float64        `json:"interval,omitempty"`
	Point    string         `json:"point,omitempty"`
	Func     string         `json:"func,omitempty"`
	Args     []any          `json:"args,omitempty"`
	Target   string         `json:"target,omitempty"`
	Name     string         `json:"name,omitempty"`
	Content  *string        `json:"content,omitempty"`
	Key      string         `json:"key,omitempty"`
	Value    any            `json:"value,omitempty"`
	Text     string         `json:"text,omitempty"`
}

const (
	InstructionTypeGet            = "get"
	InstructionTypePost           = "post"
	InstructionTypeInterval       = "interval"
	InstructionTypeUpdate         = "update"
	InstructionTypeStop           = "stop"
	InstructionTypeUnset          = "unset"
	InstructionTypeAbort          = "abort"
	InstructionTypeLog            = "log"
	InstructionTypeOutput         = "output"
	InstructionTypeAttribute      = "attribute"
	InstructionTypeClose          = "close"
	InstructionTypeCallbackAdd    = "callbackadd"
	InstructionTypeCallbackRemove = "callbackremove"
	InstructionTypeCallbackClear  = "callbackclear"
	InstructionTypeCall           = "call"
	InstructionTypeDataset        = "dataset"
	InstructionTypeNop            = "nop"
)

// lifecycle points on a connection at which registered bindings run
const (
	PointGet       = "get"
	PointPost      = "post"
	PointUpdate    = "update"
	PointReply     = "reply"
	PointAbort     = "abort"
	PointInner     = "inner"
	PointForbidden = "forbidden"
	PointReady     = "ready"
)

func strContent(content *string) string {
	if content == nil {
		return ""
	}
	return *content
}

func boolContent(content *string) bool {
	if content == nil {
		return false
	}
	switch *content {
	case "", "0", "false":
		return false
	default:
		return true
	}
}
