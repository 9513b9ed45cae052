package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/tysiac/logger"
	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/services"
)

const serviceName = "Tysiac"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the admin service. Each server
// has its own registry so several can run in one process.
func NewServer(addr string, service *services.GameService) (*Server, error) {
	registry := rpc.NewServer()
	if err := registry.RegisterName(serviceName, NewGameService(service)); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      registry,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes RPC methods.
type GameService struct {
	service *services.GameService
}

func NewGameService(service *services.GameService) *GameService {
	return &GameService{service: service}
}

// DispatchArgs mirrors services.Request. Data is raw JSON so gob can carry it.
type DispatchArgs struct {
	Action   string
	PlayerID string
	Data     []byte
}

// DispatchReply carries the JSON encoded services.Response.
// gob skips zero values, so decode every call into a fresh reply.
type DispatchReply struct {
	Success bool
	Code    string
	Body    []byte
}

// Dispatch runs one action on behalf of an operator.
func (gs *GameService) Dispatch(args *DispatchArgs, reply *DispatchReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp := gs.service.Dispatch(ctx, services.Request{
		Action:   args.Action,
		PlayerID: args.PlayerID,
		Data:     json.RawMessage(args.Data),
	})
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	reply.Success = resp.Success
	reply.Code = resp.Code
	reply.Body = body
	return nil
}

type StatsArgs struct {
	IncludeRooms bool
}

type StatsReply struct {
	Stats services.Stats
	Rooms []room.Summary
}

// Stats reports live room and player counts, optionally with the lobby list.
func (gs *GameService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.Stats = gs.service.Stats()
	if args.IncludeRooms {
		reply.Rooms = gs.service.Dispatch(context.Background(), services.Request{Action: services.ActionListRooms}).Rooms
	}
	return nil
}
