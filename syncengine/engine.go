package syncengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
)

// ErrChecksumMismatch is returned when a download page repeatedly fails
// integrity verification.
var ErrChecksumMismatch = errors.New("download checksum mismatch")

// Result summarizes one sync pass.
type Result struct {
	Downloaded int
	Uploaded   int
	Accepted   int
	Rejected   int
	Checkpoint syncclient.Checkpoint
}

// Engine drives the sync protocol for one company against one local store:
// catch up via downloads, push the pending outbox in maxBatch-sized uploads,
// then persist the new server cursor. Calls are serialized; the protocol
// gives no ordering guarantees for overlapping calls, so the engine never
// issues them.
type Engine struct {
	Client    *syncclient.Client
	Store     *Store
	CompanyID string
	Backoff   Backoff
	Logger    *logrus.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	maxBatch int
	lastSync time.Time
}

func NewEngine(client *syncclient.Client, store *Store, companyID string, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		Client:    client,
		Store:     store,
		CompanyID: companyID,
		Backoff:   defaultBackoff(),
		Logger:    log,
		stopChan:  make(chan struct{}),
	}
}

// LastSync returns when the last successful pass finished.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Sync runs one full pass: download until caught up, upload the outbox,
// refresh rows the server rejected, then store the new checkpoint.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refreshMeta(ctx); err != nil {
		return nil, err
	}

	result := &Result{}

	preUpload, err := e.Store.Checkpoint(e.CompanyID)
	if err != nil {
		return nil, err
	}

	cp, err := e.downloadAll(ctx, preUpload, result)
	if err != nil {
		return nil, err
	}

	serverSince, rejected, err := e.uploadPending(ctx, result)
	if err != nil {
		return nil, err
	}

	if rejected {
		// The server kept its own versions. The dirty flags are gone now,
		// so replaying the window picks the winners up locally.
		if cp, err = e.downloadAll(ctx, preUpload, result); err != nil {
			return nil, err
		}
	}

	if !serverSince.IsZero() {
		cp = serverSince
	}
	if !cp.IsZero() {
		if err := e.Store.SetCheckpoint(e.CompanyID, cp); err != nil {
			return nil, err
		}
	}
	result.Checkpoint = cp

	e.lastSync = time.Now()
	e.Logger.WithFields(logrus.Fields{
		"company":    e.CompanyID,
		"downloaded": result.Downloaded,
		"accepted":   result.Accepted,
		"rejected":   result.Rejected,
	}).Info("sync pass complete")
	return result, nil
}

// refreshMeta learns the upload cap. Metadata is idempotent, so it retries.
func (e *Engine) refreshMeta(ctx context.Context) error {
	return e.Backoff.run(ctx, func() error {
		meta, err := e.Client.Meta(ctx)
		if err != nil {
			return err
		}
		e.maxBatch = meta.MaxBatch
		return nil
	})
}

// downloadAll pages from the given checkpoint until the server reports
// caught up (an empty response), applying each page locally. Downloads are
// idempotent, so each page call retries on transient failures.
func (e *Engine) downloadAll(ctx context.Context, since syncclient.Checkpoint, result *Result) (syncclient.Checkpoint, error) {
	cp := since
	badPages := 0
	for {
		var resp *syncclient.DownloadResponse
		err := e.Backoff.run(ctx, func() error {
			var callErr error
			resp, callErr = e.Client.Download(ctx, syncclient.DownloadParams{
				CompanyID: e.CompanyID,
				Since:     cp,
			})
			return callErr
		})
		if err != nil {
			return cp, err
		}

		if !syncclient.VerifyChecksum(resp) {
			badPages++
			if badPages > 3 {
				return cp, ErrChecksumMismatch
			}
			e.Logger.WithField("nextSince", resp.NextSince).Warn("download checksum mismatch, refetching page")
			continue
		}
		badPages = 0

		if resp.Empty() {
			// Caught up. The server echoes the cursor in this case.
			return resp.NextSince, nil
		}

		applied, err := e.Store.applyDownload(resp)
		if err != nil {
			return cp, err
		}
		result.Downloaded += applied
		cp = resp.NextSince
	}
}

// uploadPending drains the outbox in batches. Each batch carries a fresh
// idempotency key that survives retries of that batch, so a timed-out upload
// can be resent without double-applying.
func (e *Engine) uploadPending(ctx context.Context, result *Result) (syncclient.Checkpoint, bool, error) {
	var serverSince syncclient.Checkpoint
	anyRejected := false

	batchLimit := e.maxBatch
	if batchLimit <= 0 {
		batchLimit = 100
	}

	for {
		pending, err := e.Store.takePending(batchLimit)
		if err != nil {
			return serverSince, anyRejected, err
		}
		if len(pending) == 0 {
			return serverSince, anyRejected, nil
		}

		batch, err := e.Store.buildBatch(pending)
		if err != nil {
			return serverSince, anyRejected, err
		}

		req := &syncclient.UploadRequest{
			CompanyID:   e.CompanyID,
			ClientTime:  time.Now().UTC(),
			BatchID:     uuid.NewString(),
			Collections: *batch,
		}
		result.Uploaded += req.Count()

		var resp *syncclient.UploadResponse
		err = e.Backoff.run(ctx, func() error {
			var callErr error
			resp, callErr = e.Client.Upload(ctx, req)
			return callErr
		})
		if err != nil {
			return serverSince, anyRejected, err
		}

		for collection, ids := range resp.Accepted {
			for _, id := range ids {
				result.Accepted++
				if err := e.Store.ClearDirty(collection, id); err != nil {
					return serverSince, anyRejected, err
				}
			}
		}
		for collection, items := range resp.Rejected {
			for _, item := range items {
				result.Rejected++
				anyRejected = true
				e.Logger.WithFields(logrus.Fields{
					"collection": collection,
					"id":         item.ID,
					"reason":     item.Reason,
				}).Warn("upload rejected, keeping server version")
				// Server wins: drop the local claim so the refresh
				// download can overwrite the row.
				if err := e.Store.ClearDirty(collection, item.ID); err != nil {
					return serverSince, anyRejected, err
				}
			}
		}

		// Marks that matched no local row (row deleted locally before the
		// sync) are dropped so the loop terminates.
		for _, p := range pending {
			if err := e.Store.ClearDirty(p.Collection, p.RecordID); err != nil {
				return serverSince, anyRejected, err
			}
		}

		serverSince = resp.ServerSince
	}
}

// Start runs Sync on a fixed interval until Stop, in the background.
func (e *Engine) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := e.Sync(context.Background()); err != nil {
					e.Logger.WithError(err).Error("periodic sync failed")
				}
			case <-e.stopChan:
				return
			}
		}
	}()
}

func (e *Engine) Stop() {
	close(e.stopChan)
}
