// Package protocol implements server-side JSON-RPC 2.0 message handling
// over the editor transport: Content-Length framed messages on stdio.
package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"couleuvre/src/internal/common"
)

// JSON-RPC protocol constants
const (
	JSONRPCVersion = "2.0"
)

// JSON-RPC error codes
const (
	ParseError     = -32700 // Invalid JSON was received by the server
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist / is not available
	InvalidParams  = -32602 // Invalid method parameter(s)
	InternalError  = -32603 // Internal JSON-RPC error

	RequestCancelled = -32800 // The request was cancelled by the client
)

// messageBufferSize keeps large reference results from truncating.
const messageBufferSize = 1024 * 1024

// JSONRPCMessage represents a JSON-RPC 2.0 message in any direction.
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// MessageHandler receives decoded client messages from the read loop.
type MessageHandler interface {
	HandleRequest(method string, id interface{}, params json.RawMessage) error
	HandleNotification(method string, params json.RawMessage) error
}

// Conn frames JSON-RPC messages over a reader/writer pair. Writes are
// safe for concurrent use through the writeCh single-writer loop the
// server runs; reads happen on one goroutine.
type Conn struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewConn wraps a transport pair, typically stdin/stdout.
func NewConn(reader io.Reader, writer io.Writer) *Conn {
	return &Conn{
		reader: bufio.NewReaderSize(reader, messageBufferSize),
		writer: writer,
	}
}

// WriteMessage sends one message with the Content-Length header framing.
func (c *Conn) WriteMessage(msg JSONRPCMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(data), data)
	_, err = c.writer.Write([]byte(content))
	return err
}

// ReadMessage blocks until one complete framed message arrives.
// io.EOF means the client closed the transport.
func (c *Conn) ReadMessage() (*JSONRPCMessage, error) {
	var contentLength int
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if strings.HasPrefix(line, "Content-Length:") {
			lengthStr := strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:"))
			length, err := strconv.Atoi(lengthStr)
			if err != nil {
				common.ServerLogger.Debug("failed to parse Content-Length: %s", lengthStr)
				continue
			}
			contentLength = length
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, err
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// Serve reads messages until EOF or stop, routing each to the handler.
// Handler errors are logged and do not stop the loop.
func (c *Conn) Serve(handler MessageHandler, stopCh <-chan struct{}) error {
	for {
		select {
		case <-stopCh:
			return nil
		default:
		}

		msg, err := c.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch {
		case msg.Method != "" && msg.ID != nil:
			if err := handler.HandleRequest(msg.Method, msg.ID, msg.Params); err != nil {
				common.ServerLogger.Error("request %s failed: %v", msg.Method, err)
			}
		case msg.Method != "":
			if err := handler.HandleNotification(msg.Method, msg.Params); err != nil {
				common.ServerLogger.Error("notification %s failed: %v", msg.Method, err)
			}
		default:
			// Responses to server-initiated requests; none are issued.
			common.ServerLogger.Debug("ignoring response message id=%v", msg.ID)
		}
	}
}

// CreateNotification creates a JSON-RPC notification (no ID).
func CreateNotification(method string, params interface{}) JSONRPCMessage {
	raw, _ := json.Marshal(params)
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  raw,
	}
}

// CreateResponse creates a JSON-RPC response message.
func CreateResponse(id interface{}, result interface{}, err *RPCError) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

// NewRPCError creates a new RPCError with the specified code and message.
func NewRPCError(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewMethodNotFoundError creates a method not found error (-32601).
func NewMethodNotFoundError(method string) *RPCError {
	return NewRPCError(MethodNotFound, "Method not found", method)
}

// NewInvalidParamsError creates an invalid params error (-32602).
func NewInvalidParamsError(data interface{}) *RPCError {
	return NewRPCError(InvalidParams, "Invalid params", data)
}

// NewInternalError creates an internal error (-32603).
func NewInternalError(data interface{}) *RPCError {
	return NewRPCError(InternalError, "Internal error", data)
}
