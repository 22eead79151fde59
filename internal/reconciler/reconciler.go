package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"payanchor/internal/content"
	"payanchor/internal/ledger"
	"payanchor/internal/models"
	"payanchor/internal/store"
)

// Records is the Record Store surface the reconciler mutates through.
type Records interface {
	GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error)
	ConfirmDefinition(ctx context.Context, id string, conf models.Confirmation) (store.ConfirmResult, error)
	GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error)
	ConfirmInstance(ctx context.Context, id string, conf models.Confirmation) (store.ConfirmResult, error)
}

type ContentStore interface {
	RetrieveAndVerify(ctx context.Context, address, expectedHash string) (json.RawMessage, error)
}

// Reconciler applies confirmation events to submitted records. Every
// per-event failure is isolated and logged; the record stays in its prior
// state and the stream's redelivery is the only retry mechanism.
type Reconciler struct {
	Records Records
	Content ContentStore
}

// HandleBatch processes the batch's events concurrently; they are
// independent by id. It returns only after every launched handler has
// finished, so the caller can ack. A cancelled context stops launching new
// handlers and surfaces the error so the batch is not acked and gets
// redelivered.
func (r *Reconciler) HandleBatch(ctx context.Context, events []ledger.RawEvent) error {
	var wg sync.WaitGroup
	for _, ev := range events {
		if ctx.Err() != nil {
			wg.Wait()
			return ctx.Err()
		}
		wg.Add(1)
		go func(ev ledger.RawEvent) {
			defer wg.Done()
			r.handleEvent(ctx, ev)
		}(ev)
	}
	wg.Wait()
	return nil
}

func (r *Reconciler) handleEvent(ctx context.Context, ev ledger.RawEvent) {
	decoded, ok, err := ledger.Decode(ev)
	if err != nil {
		log.Printf("event decode failed sig=%s tx=%s: %v", ev.Signature, ev.TransactionHash, err)
		return
	}
	if !ok {
		log.Printf("unknown event signature %q, skipping", ev.Signature)
		return
	}

	blockNumber, err := ledger.ParseInt64(ev.BlockNumber)
	if err != nil {
		log.Printf("bad block number %q tx=%s: %v", ev.BlockNumber, ev.TransactionHash, err)
		return
	}

	switch data := decoded.(type) {
	case *ledger.DefinitionCreated:
		r.confirmDefinition(ctx, ev, data, blockNumber)
	case *ledger.InstanceCreated:
		r.confirmInstance(ctx, ev, data, blockNumber)
	}
}

func (r *Reconciler) confirmDefinition(ctx context.Context, ev ledger.RawEvent, data *ledger.DefinitionCreated, blockNumber int64) {
	id, err := ledger.HexToUUID(data.PaymentDefinitionID)
	if err != nil {
		log.Printf("bad definition id %q: %v", data.PaymentDefinitionID, err)
		return
	}

	def, err := r.Records.GetDefinition(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Not ours, or the local write has not landed. The ledger
			// redelivers; nothing to retry here.
			log.Printf("definition %s has no local record, skipping", id)
			return
		}
		log.Printf("definition %s lookup failed: %v", id, err)
		return
	}

	// Content verification happens before the confirmation update so no
	// store-side lock is held across gateway I/O.
	if data.DescriptionSchemaHash != "" {
		if !r.verifyContent(ctx, "definition", id, def.DescriptionSchemaAddress, data.DescriptionSchemaHash) {
			return
		}
	}

	ts, err := ledger.ParseInt64(data.Timestamp)
	if err != nil {
		log.Printf("definition %s bad timestamp %q: %v", id, data.Timestamp, err)
		return
	}

	res, err := r.Records.ConfirmDefinition(ctx, id, models.Confirmation{
		Timestamp:       ts,
		BlockNumber:     blockNumber,
		TransactionHash: ev.TransactionHash,
	})
	if err != nil {
		log.Printf("definition %s confirm failed: %v", id, err)
		return
	}
	logConfirmResult("definition", id, ev.TransactionHash, res)
}

func (r *Reconciler) confirmInstance(ctx context.Context, ev ledger.RawEvent, data *ledger.InstanceCreated, blockNumber int64) {
	id, err := ledger.HexToUUID(data.PaymentInstanceID)
	if err != nil {
		log.Printf("bad instance id %q: %v", data.PaymentInstanceID, err)
		return
	}

	inst, err := r.Records.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("instance %s has no local record, skipping", id)
			return
		}
		log.Printf("instance %s lookup failed: %v", id, err)
		return
	}

	if data.DescriptionHash != "" {
		if !r.verifyContent(ctx, "instance", id, inst.DescriptionAddress, data.DescriptionHash) {
			return
		}
	}

	ts, err := ledger.ParseInt64(data.Timestamp)
	if err != nil {
		log.Printf("instance %s bad timestamp %q: %v", id, data.Timestamp, err)
		return
	}

	res, err := r.Records.ConfirmInstance(ctx, id, models.Confirmation{
		Timestamp:       ts,
		BlockNumber:     blockNumber,
		TransactionHash: ev.TransactionHash,
	})
	if err != nil {
		log.Printf("instance %s confirm failed: %v", id, err)
		return
	}
	logConfirmResult("instance", id, ev.TransactionHash, res)
}

// verifyContent returns true when the stored content hashes to the
// event-supplied digest. Any other outcome leaves the record submitted.
func (r *Reconciler) verifyContent(ctx context.Context, kind, id, address, eventHash string) bool {
	if address == "" {
		log.Printf("%s %s: event carries hash %s but record has no content address", kind, id, eventHash)
		return false
	}
	if _, err := r.Content.RetrieveAndVerify(ctx, address, eventHash); err != nil {
		switch {
		case errors.Is(err, content.ErrHashMismatch):
			log.Printf("%s %s: content integrity violation, hash %s does not match stored content", kind, id, eventHash)
		case errors.Is(err, content.ErrNotFound):
			log.Printf("%s %s: content %s not retrievable yet", kind, id, address)
		default:
			log.Printf("%s %s: content fetch failed: %v", kind, id, err)
		}
		return false
	}
	return true
}

func logConfirmResult(kind, id, txHash string, res store.ConfirmResult) {
	switch res {
	case store.Applied:
		log.Printf("%s %s confirmed tx=%s", kind, id, txHash)
	case store.AlreadyConfirmed:
		log.Printf("%s %s already confirmed, duplicate delivery ignored", kind, id)
	case store.NoRecord:
		log.Printf("%s %s disappeared before confirm", kind, id)
	}
}
