package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"reflect"

	"github.com/sourcegraph/jsonrpc2"
)

type Method func(ctx context.Context, conn jsonrpc2.JSONRPC2, params json.RawMessage) (interface{}, error)
type MethodMap map[string]Method

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// Bind adapts a typed handler method to a Method. The handler must take
// (ctx, conn, params) where params is a struct the request's json decodes
// into, and return either nothing (a notification) or (result, error).
func Bind(fn interface{}) Method {
	val := reflect.ValueOf(fn)
	in := val.Type().In(2)
	return func(ctx context.Context, conn jsonrpc2.JSONRPC2, params json.RawMessage) (interface{}, error) {
		v := reflect.New(in)
		if len(params) > 0 {
			if err := json.Unmarshal(params, v.Interface()); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		ret := val.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(conn), v.Elem()})
		switch len(ret) {
		case 0: // notification
			return nil, nil
		case 2:
			var err error
			if !ret[1].IsNil() {
				err = ret[1].Interface().(error)
			}
			return ret[0].Interface(), err
		default:
			panic("unknown arity of return")
		}
	}
}

func (m MethodMap) handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		method, ok := m[req.Method]
		if !ok {
			if req.Notif {
				return nil, nil
			}
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return method(ctx, conn, params)
	})
}

// Serve speaks the protocol over stdio and blocks until the client hangs
// up. The message loop dispatches one request at a time; handlers that
// want to do slow work spawn their own goroutines.
func Serve(methods MethodMap) {
	ServeStream(stdrwc{}, methods)
}

// ServeStream runs the message loop over an arbitrary transport.
func ServeStream(rwc io.ReadWriteCloser, methods MethodMap) {
	conn := jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		methods.handler(),
	)
	<-conn.DisconnectNotify()
}

// ListenAndServe accepts a single client on addr and serves it until it
// disconnects.
func ListenAndServe(addr string, methods MethodMap) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	c, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accepting client: %w", err)
	}
	ServeStream(c, methods)
	return nil
}
