package http

import (
	"github.com/vovakirdan/miipal/internal/core"
	"github.com/vovakirdan/miipal/internal/proto"
)

func outboundFromEvent(event *core.Event) proto.Outbound {
	name, payload := proto.EncodeEvent(event)
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  payload,
	}
}
