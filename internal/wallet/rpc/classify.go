package rpc

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// JSON-RPC server error codes that mean "try again", not "your request is wrong".
const (
	codeLimitExceeded = -32005
	codeNodeUnhealthy = -32016 // solana: node is behind
)

// transientMessages are substrings of node responses that indicate a
// temporary condition on that node.
var transientMessages = []string{
	"rate limit",
	"too many requests",
	"blockhash not found",
	"node is behind",
	"node is unhealthy",
	"header not found",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
	"connection reset",
	"connection refused",
	"no such host",
	"i/o timeout",
}

// IsTransient reports whether err may succeed when retried on another
// endpoint. Classified errors from errs keep their own meaning: only network
// kinds are transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var classified *errs.Error
	if errors.As(err, &classified) {
		return classified.Kind == errs.KindNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if status, ok := httpStatus(err); ok {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}

	if code, msg, ok := jsonRPCError(err); ok {
		if code == codeLimitExceeded || code == codeNodeUnhealthy {
			return true
		}
		return hasTransientMessage(msg)
	}

	return hasTransientMessage(err.Error())
}

// MayHaveLanded reports whether a failed submission could still have reached
// the network. Refused connections, DNS failures and rate limiting mean the
// node never accepted the request; timeouts and dropped responses do not.
func MayHaveLanded(err error) bool {
	if !IsTransient(err) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return false
	}
	if status, ok := httpStatus(err); ok && status == http.StatusTooManyRequests {
		return false
	}
	if _, _, ok := jsonRPCError(err); ok {
		return false
	}
	return true
}

func httpStatus(err error) (int, bool) {
	var gethValue gethrpc.HTTPError
	if errors.As(err, &gethValue) {
		return gethValue.StatusCode, true
	}
	var gethPtr *gethrpc.HTTPError
	if errors.As(err, &gethPtr) && gethPtr != nil {
		return gethPtr.StatusCode, true
	}
	var solHTTP *jsonrpc.HTTPError
	if errors.As(err, &solHTTP) && solHTTP != nil {
		return solHTTP.Code, true
	}
	return 0, false
}

func jsonRPCError(err error) (int, string, bool) {
	var solErr *jsonrpc.RPCError
	if errors.As(err, &solErr) && solErr != nil {
		return solErr.Code, solErr.Message, true
	}
	var gethErr gethrpc.Error
	if errors.As(err, &gethErr) {
		return gethErr.ErrorCode(), gethErr.Error(), true
	}
	return 0, "", false
}

func hasTransientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
