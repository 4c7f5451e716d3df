package transport

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/compartya/compartya/types"
	"github.com/compartya/compartya/types/actor"
)

type recvFrame struct {
	pkt []byte

	src netip.AddrPort
}

// sockRecv is the socket-polling actor; it only reads, and hands frames to the Socket.
type sockRecv struct {
	*actor.Common

	conn types.UDPConn

	outCh chan recvFrame
}

func makeSockRecv(pCtx context.Context, udp types.UDPConn) *sockRecv {
	return &sockRecv{
		Common: actor.MakeCommon(pCtx),
		conn:   udp,
		outCh:  make(chan recvFrame, SockRecvFrameChanBuffer),
	}
}

func (r *sockRecv) Run() {
	defer actor.Bail(r)

	if !r.Start() {
		actor.L(r).Warn("tried to run agent, while already running")
		return
	}

	defer r.Close()

	var buf = make([]byte, MaxFrameSize)

	for {
		if types.IsContextDone(r.Ctx()) {
			return
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(SockRecvReadTimeout)); err != nil {
			actor.L(r).Error("could not set read deadline", "err", err)
			return
		}

		n, ap, err := r.conn.ReadFromUDPAddrPort(buf)

		if err != nil {
			var e net.Error
			if errors.As(err, &e) && e.Timeout() {
				continue
			}

			if !errors.Is(err, net.ErrClosed) && !types.IsContextDone(r.Ctx()) {
				actor.L(r).Error("socket read failed, stopping", "err", err)
			}
			return
		}

		if n == 0 {
			continue
		}

		select {
		case <-r.Ctx().Done():
			return
		case r.outCh <- recvFrame{
			pkt: slices.Clone(buf[:n]),
			src: types.NormaliseAddrPort(ap),
		}:
		}
	}
}

func (r *sockRecv) Close() {
	close(r.outCh)
}
