// Package ws talks to a conductor's app interface over a websocket.
package ws

import (
	"fmt"

	"github.com/bnema/condenser/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame types of the app interface.
const (
	frameRequest  = "request"
	frameResponse = "response"
	frameSignal   = "signal"
)

// Request and response types of the app interface.
const (
	reqAppInfo          = "app_info"
	reqCallZome         = "call_zome"
	reqCreateCloneCell  = "create_clone_cell"
	reqEnableCloneCell  = "enable_clone_cell"
	reqDisableCloneCell = "disable_clone_cell"

	respAppInfo           = "app_info"
	respZomeCalled        = "zome_called"
	respCloneCellCreated  = "clone_cell_created"
	respCloneCellEnabled  = "clone_cell_enabled"
	respCloneCellDisabled = "clone_cell_disabled"
	respError             = "error"
)

// frame is one websocket message. Data holds a msgpack encoded appMessage or AppSignal.
type frame struct {
	ID   uint64 `msgpack:"id"`
	Type string `msgpack:"type"`
	Data []byte `msgpack:"data"`
}

type appMessage struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data,omitempty"`
}

type callZomeRequest struct {
	CellID     domain.CellID      `msgpack:"cell_id"`
	ZomeName   string             `msgpack:"zome_name"`
	FnName     string             `msgpack:"fn_name"`
	Payload    []byte             `msgpack:"payload"`
	Provenance domain.AgentPubKey `msgpack:"provenance"`
}

// createCloneCellRequest carries encoded properties so their field order, and with it the
// dna hash, survives the trip.
type createCloneCellRequest struct {
	RoleName  string              `msgpack:"role_name"`
	Modifiers domain.DnaModifiers `msgpack:"modifiers"`
	Name      string              `msgpack:"name"`
}

type cloneCellRequest struct {
	CloneCellID domain.CellID `msgpack:"clone_cell_id"`
}

func encodeMessage(msgType string, data any) ([]byte, error) {
	msg := appMessage{Type: msgType}
	if data != nil {
		raw, err := msgpack.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		msg.Data = raw
	}
	return msgpack.Marshal(msg)
}

func decodeMessage(raw []byte) (appMessage, error) {
	var msg appMessage
	if err := msgpack.Unmarshal(raw, &msg); err != nil {
		return appMessage{}, fmt.Errorf("decode app message: %w", err)
	}
	return msg, nil
}

func encodeFrame(f frame) ([]byte, error) {
	raw, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return raw, nil
}

func decodeFrame(raw []byte) (frame, error) {
	var f frame
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
