package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/metrics"
	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/rpc"
)

// Engines maps an upper-case chain symbol to its engine.
type Engines map[string]Engine

type service struct {
	engines  Engines
	locks    *SenderLocks
	cfg      Config
	metrics  *metrics.Service
	recorder Recorder
}

// NewService creates the transfer service. metrics and recorder may be nil.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(engines Engines, cfg Config, m *metrics.Service, recorder Recorder) Service {
	defaults := DefaultConfig()
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = defaults.ConfirmInterval
	}
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = defaults.ConfirmAttempts
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = defaults.TotalTimeout
	}

	return &service{
		engines:  engines,
		locks:    NewSenderLocks(),
		cfg:      cfg,
		metrics:  m,
		recorder: recorder,
	}
}

func (s *service) engine(chain string) (Engine, error) {
	e, ok := s.engines[strings.ToUpper(chain)]
	if !ok {
		return nil, errs.Validation(errs.CodeUnsupportedChain, "transfers are not supported on %q", chain)
	}
	return e, nil
}

// Validate runs the engine's offline checks.
func (s *service) Validate(req *Request) (*Unsigned, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "transfer request is required")
	}
	e, err := s.engine(req.Chain)
	if err != nil {
		return nil, err
	}
	return e.Validate(req)
}

// Estimate prepares the transfer against the first healthy endpoint.
func (s *service) Estimate(ctx context.Context, req *Request) (*Unsigned, error) {
	u, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	e, _ := s.engine(req.Chain)

	var failures rpc.Failures
	for i, url := range e.Endpoints() {
		prepared, err := e.Prepare(ctx, i, u)
		if err == nil {
			return prepared, nil
		}
		if !rpc.IsTransient(err) {
			return nil, classifyPrepare(ctx, err)
		}
		failures = append(failures, rpc.Failure{URL: url, Err: err})
	}
	return nil, errs.AllEndpointsFailed(failures, len(e.Endpoints()))
}

// Status probes every endpoint in order until one answers.
func (s *service) Status(ctx context.Context, chain string, txID string) (*Result, error) {
	e, err := s.engine(chain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(txID) == "" {
		return nil, errs.Validation(errs.CodeInvalidInput, "transaction id is required")
	}
	res, _, err := s.probe(ctx, e, 0, txID)
	return res, err
}

// Transfer runs Built → Signed → Broadcast → Confirmed|Failed|Unconfirmed.
func (s *service) Transfer(ctx context.Context, req *Request, key []byte) (*Result, error) {
	u, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	e, _ := s.engine(u.Chain)

	log := util.LogFromContext(ctx).With().
		Str("component", "transfer").
		Str("chain", u.Chain).
		Str("from", u.From).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TotalTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, u.Chain, u.From)
	if err != nil {
		return nil, errs.Network(err, "timed out waiting for a pending transfer from the same sender")
	}
	sub, err := s.submit(ctx, e, u, key)
	unlock()

	if err != nil {
		log.Warn().Err(err).Msg("Transfer was not submitted")
		s.metrics.TransferFinished(u.Chain, "error")
		return nil, err
	}

	log.Info().
		Str("txId", sub.txID).
		Str("endpoint", e.Endpoints()[sub.endpoint]).
		Int("attempts", sub.attempts).
		Msg("Transfer accepted by node")

	started := time.Now()
	res := s.confirm(ctx, e, sub)
	s.metrics.ObserveConfirm(u.Chain, time.Since(started))
	s.metrics.TransferFinished(u.Chain, string(res.Status))

	log.Info().Str("txId", res.TxID).Str("status", string(res.Status)).Msg("Transfer finished")

	if s.recorder != nil {
		// recording runs on a fresh context so an expired transfer deadline still records
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), rpc.DefaultCallTimeout)
		if err := s.recorder.Record(recordCtx, req, res); err != nil {
			log.Error().Err(err).Str("txId", res.TxID).Msg("Failed to record transfer result")
		}
		recordCancel()
	}

	if res.Status == StatusUnconfirmed {
		return res, errs.Unconfirmed(res.TxID)
	}
	return res, nil
}

type submission struct {
	txID     string
	endpoint int
	attempts int
	// known is set when reconciliation found an earlier attempt on chain.
	known *Result
}

// submit walks the endpoints. An attempt that may have reached a node is
// looked up and then re-sent unchanged to the next endpoint; a new Prepare and
// Sign happen only after a send that did not land. While any attempt is in
// flight a refusal is reconciled instead of returned.
func (s *service) submit(ctx context.Context, e Engine, u *Unsigned, key []byte) (*submission, error) {
	urls := e.Endpoints()
	var (
		failures rpc.Failures
		inFlight []string
		// pending is the last signed transaction that may have landed.
		pending  *Signed
		attempts int
	)

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			failures = append(failures, rpc.Failure{URL: url, Err: err})
			break
		}
		if i > 0 {
			s.metrics.Failover(u.Chain)
		}

		for _, txID := range inFlight {
			res, err := e.Status(ctx, i, txID)
			if err == nil && res != nil {
				return &submission{txID: txID, endpoint: i, attempts: attempts, known: res}, nil
			}
		}

		if pending != nil {
			attempts++
			err := e.Broadcast(ctx, i, pending)
			if err == nil {
				return &submission{txID: pending.TxID, endpoint: i, attempts: attempts}, nil
			}
			if !rpc.IsTransient(err) {
				return s.reconcile(ctx, e, inFlight, attempts, classifyRejection(err))
			}
			failures = append(failures, rpc.Failure{URL: url, Err: errors.Wrap(err, "resend")})
			if rpc.MayHaveLanded(err) {
				continue
			}
		}

		prepared, err := e.Prepare(ctx, i, u)
		if err != nil {
			if !rpc.IsTransient(err) {
				return s.reconcile(ctx, e, inFlight, attempts, classifyPrepare(ctx, err))
			}
			failures = append(failures, rpc.Failure{URL: url, Err: errors.Wrap(err, "prepare")})
			continue
		}

		signed, err := e.Sign(prepared, key)
		if err != nil {
			return s.reconcile(ctx, e, inFlight, attempts, err)
		}

		attempts++
		err = e.Broadcast(ctx, i, signed)
		if err == nil {
			return &submission{txID: signed.TxID, endpoint: i, attempts: attempts}, nil
		}
		if !rpc.IsTransient(err) {
			return s.reconcile(ctx, e, inFlight, attempts, classifyRejection(err))
		}
		if rpc.MayHaveLanded(err) {
			inFlight = append(inFlight, signed.TxID)
			pending = signed
		}
		failures = append(failures, rpc.Failure{URL: url, Err: errors.Wrap(err, "broadcast")})
	}

	if len(inFlight) > 0 {
		return s.reconcile(ctx, e, inFlight, attempts, nil)
	}

	return nil, errs.AllEndpointsFailed(failures, len(urls))
}

// reconcile decides the outcome once the walk stops with cause. Without
// earlier attempts in flight cause is returned as is. Otherwise every endpoint
// is asked for each attempt; a known attempt continues to confirmation and an
// unknown one is reported unconfirmed, never as cause.
func (s *service) reconcile(ctx context.Context, e Engine, inFlight []string, attempts int, cause error) (*submission, error) {
	if len(inFlight) == 0 {
		return nil, cause
	}
	if cause != nil {
		util.LogFromContext(ctx).Warn().Err(cause).Strs("inFlight", inFlight).
			Msg("Send refused after an earlier attempt may have landed")
	}

	for _, txID := range inFlight {
		res, idx, err := s.probe(ctx, e, 0, txID)
		if err == nil && res != nil {
			return &submission{txID: txID, endpoint: idx, attempts: attempts, known: res}, nil
		}
	}

	last := inFlight[len(inFlight)-1]
	return &submission{
		txID:     last,
		endpoint: len(e.Endpoints()) - 1,
		attempts: attempts,
		known:    &Result{TxID: last, Status: StatusUnconfirmed},
	}, nil
}

// confirm polls until the transaction is final, attempts run out or ctx ends.
// It always returns a result carrying the transaction id.
func (s *service) confirm(ctx context.Context, e Engine, sub *submission) *Result {
	latest := &Result{TxID: sub.txID, Status: StatusPending}
	if sub.known != nil {
		latest = sub.known
	}

	endpoint := sub.endpoint
	if !latest.Status.Final() {
		err := rpc.Poll(ctx, s.cfg.ConfirmInterval, s.cfg.ConfirmAttempts, func(ctx context.Context) (bool, error) {
			res, idx, err := s.probe(ctx, e, endpoint, sub.txID)
			if err != nil {
				if errors.Is(err, ErrTxNotFound) {
					return false, nil
				}
				return false, err
			}
			endpoint = idx
			latest = res
			return res.Status.Final(), nil
		})
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Str("txId", sub.txID).Msg("Confirmation polling ended")
			latest = &Result{TxID: sub.txID, Status: StatusUnconfirmed, FeePaid: latest.FeePaid, Block: latest.Block}
		}
	}

	out := *latest
	out.TxID = sub.txID
	out.Endpoint = e.Endpoints()[endpoint]
	out.Attempts = sub.attempts
	if !out.Status.Final() {
		out.Status = StatusUnconfirmed
	}
	return &out
}

// probe asks the endpoint that accepted the transaction first and moves on
// when an endpoint fails transiently or does not know the transaction yet.
// ErrTxNotFound is returned only when every endpoint answered not found.
func (s *service) probe(ctx context.Context, e Engine, start int, txID string) (*Result, int, error) {
	urls := e.Endpoints()
	var (
		failures rpc.Failures
		notFound int
	)

	for k := range urls {
		i := (start + k) % len(urls)
		res, err := e.Status(ctx, i, txID)
		if err == nil {
			return res, i, nil
		}
		if errors.Is(err, ErrTxNotFound) {
			notFound++
			failures = append(failures, rpc.Failure{URL: urls[i], Err: err})
			continue
		}
		if !rpc.IsTransient(err) {
			return nil, i, err
		}
		failures = append(failures, rpc.Failure{URL: urls[i], Err: err})
	}

	if notFound == len(urls) {
		return nil, start, ErrTxNotFound
	}
	return nil, start, errs.AllEndpointsFailed(failures, len(urls))
}

// classifyRejection keeps errors the engine already classified and marks the
// rest as a deterministic refusal by the node.
func classifyRejection(err error) error {
	if errs.KindOf(err) != errs.KindUnknown {
		return err
	}
	return errs.Rejected(errs.CodeRejected, err, "transaction rejected by node")
}

// classifyPrepare treats a non-transient Prepare failure, such as a reverted
// gas estimate, as a refusal unless the caller's context ended.
func classifyPrepare(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return errs.Network(err, "transfer was cancelled")
	}
	return classifyRejection(err)
}
