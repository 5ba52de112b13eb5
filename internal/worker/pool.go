package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hbpos/internal/infra"
	"hbpos/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobSaleConfirmation = "sale_confirmation"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 3

	// DelayedSuffix names the sorted set holding jobs waiting for a retry,
	// scored by due time in unix milliseconds: jobs:email:delayed.
	DelayedSuffix = ":delayed"

	// RetryBaseDelay doubles per attempt, capped at RetryMaxDelay.
	RetryBaseDelay = 30 * time.Second
	RetryMaxDelay  = 10 * time.Minute

	// CircuitOpenDelay is how long a job waits when the SMTP breaker is open.
	// Such runs do not count towards MaxAttempts.
	CircuitOpenDelay = time.Minute

	promoteInterval  = 5 * time.Second
	promoteBatchSize = 100
)

// promoteScript moves due jobs from the delayed set back onto the queue.
// It runs atomically so a job is never lost or promoted twice.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, job in ipairs(due) do
	redis.call('ZREM', KEYS[1], job)
	redis.call('LPUSH', KEYS[2], job)
end
return #due
`)

// ErrNoQueue is returned by the dispatcher when redis is not configured.
var ErrNoQueue = errors.New("job queue not configured")

// Job is the generic envelope for all async tasks.
type Job struct {
	// ID keeps identical payloads distinct inside the delayed set.
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler runs one job type. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueSaleConfirmation pushes a confirmation email job to Redis.
func (d *Dispatcher) EnqueueSaleConfirmation(ctx context.Context, payload SaleConfirmationPayload) error {
	return d.enqueue(ctx, QueueEmail, JobSaleConfirmation, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return ErrNoQueue
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{ID: uuid.NewString(), Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes QueueEmail and routes each job to the handler of its type.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
}

func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers}
}

// Start launches numWorkers goroutines plus one that promotes due retries.
// Each worker blocks on BRPOP: zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	go p.promoteLoop(ctx, QueueEmail)
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) promoteLoop(ctx context.Context, queue string) {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := p.promote(ctx, queue, now); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("queue", queue).Msg("promoting delayed jobs failed")
			}
		}
	}
}

// promote pushes every delayed job of queue due at now back onto queue.
func (p *Pool) promote(ctx context.Context, queue string, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, p.rdb, []string{queue + DelayedSuffix, queue},
		now.UnixMilli(), promoteBatchSize).Int()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int("count", n).Str("queue", queue).Msg("delayed jobs requeued")
	}
	return n, nil
}

// RetryDelay is the backoff before the given (1-based) attempt is retried.
func RetryDelay(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= RetryMaxDelay {
			return RetryMaxDelay
		}
	}
	return d
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueEmail).Result()
			if err != nil || len(result) < 2 {
				continue // timeout or context cancelled
			}
			p.settle(ctx, result[0], p.process(ctx, result[1]))
		}
	}
}

// outcome tells the pool what to do with a job after one run.
type outcome struct {
	job    Job
	err    error
	retry  bool
	delay  time.Duration
	toDLQ  bool
	reason string
}

func (p *Pool) process(ctx context.Context, raw string) outcome {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return outcome{job: Job{Payload: json.RawMessage(raw)}, err: err, toDLQ: true, reason: "malformed job"}
	}
	job.Attempts++

	h, ok := p.handlers[job.Type]
	if !ok {
		return outcome{job: job, toDLQ: true, reason: "no handler for job type"}
	}

	err := h.Process(ctx, job.Payload)
	var perm *permanentError
	switch {
	case err == nil:
		return outcome{job: job}
	case errors.As(err, &perm):
		return outcome{job: job, err: err, toDLQ: true, reason: err.Error()}
	case errors.Is(err, infra.ErrCircuitOpen):
		// The mail server was never tried.
		job.Attempts--
		return outcome{job: job, err: err, retry: true, delay: CircuitOpenDelay}
	case job.Attempts >= MaxAttempts:
		return outcome{job: job, err: err, toDLQ: true, reason: err.Error()}
	default:
		return outcome{job: job, err: err, retry: true, delay: RetryDelay(job.Attempts)}
	}
}

func (p *Pool) settle(ctx context.Context, queue string, o outcome) {
	p.settleAt(ctx, queue, o, time.Now())
}

func (p *Pool) settleAt(ctx context.Context, queue string, o outcome, now time.Time) {
	switch {
	case o.toDLQ:
		metrics.JobsTotal.WithLabelValues(o.job.Type, "dead").Inc()
		SendToDLQ(ctx, p.rdb, queue, o.job, o.reason)
	case o.retry:
		metrics.JobsTotal.WithLabelValues(o.job.Type, "retry").Inc()
		log.Warn().Err(o.err).Str("type", o.job.Type).Int("attempt", o.job.Attempts).
			Dur("delay", o.delay).Msg("job failed, retry scheduled")
		encoded, err := json.Marshal(o.job)
		if err == nil {
			err = p.rdb.ZAdd(ctx, queue+DelayedSuffix, redis.Z{
				Score:  float64(now.Add(o.delay).UnixMilli()),
				Member: encoded,
			}).Err()
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("scheduling retry failed")
		}
	default:
		metrics.JobsTotal.WithLabelValues(o.job.Type, "ok").Inc()
		log.Info().Str("type", o.job.Type).Str("queue", queue).Msg("job processed")
	}
}
