// Package wsapi serves the memory map over a WebSocket using the JSON command
// framing of QUsb2Snes, with Space naming the address space.
package wsapi

const (
	OpName       = "Name"
	OpInfo       = "Info"
	OpResolve    = "Resolve"
	OpGetAddress = "GetAddress"
	OpPutAddress = "PutAddress"
)

// maxGetSize bounds a single GetAddress reply.
const maxGetSize = 1 << 20

type Command struct {
	Opcode   string   `json:"Opcode"`
	Space    string   `json:"Space"`
	Operands []string `json:"Operands"`
}

type Result struct {
	Results []string `json:"Results"`
	Error   string   `json:"Error,omitempty"`
}
