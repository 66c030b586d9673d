package postgres

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type writeJob struct {
	name string
	run  func(ctx context.Context) error
}

// WriteQueue — очередь записи в БД с одним обработчиком.
// Задачи выполняются строго в порядке постановки, поэтому запись балансов
// и истории в базе повторяет порядок изменений в памяти.
// Ошибка задачи повторяется с экспоненциальной паузой, затем логируется.
type WriteQueue struct {
	jobs    chan writeJob
	retries int
	backoff time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWriteQueue создаёт очередь на size задач.
func NewWriteQueue(size, retries int, backoff time.Duration) *WriteQueue {
	if size <= 0 {
		size = 1
	}
	return &WriteQueue{
		jobs:    make(chan writeJob, size),
		retries: retries,
		backoff: backoff,
		done:    make(chan struct{}),
	}
}

// Enqueue ставит задачу в очередь. Блокируется, если очередь заполнена.
// После Close задачи отбрасываются с предупреждением в логе.
func (q *WriteQueue) Enqueue(name string, run func(ctx context.Context) error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		log.WithField("job", name).Warn("Очередь записи закрыта, задача отброшена")
		return
	}
	q.jobs <- writeJob{name: name, run: run}
}

// Run обрабатывает задачи, пока очередь не закрыта и не вычерпана.
// Отмена ctx не прерывает вычерпывание: задачи получают контекст без отмены,
// чтобы при остановке всё поставленное дошло до базы.
func (q *WriteQueue) Run(ctx context.Context) error {
	defer close(q.done)

	jobCtx := context.WithoutCancel(ctx)
	for job := range q.jobs {
		q.exec(jobCtx, job)
	}
	log.Info("Очередь записи остановлена")
	return nil
}

// Close перестаёт принимать задачи. Run завершится, вычерпав остаток.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Done закрывается, когда Run обработал последнюю задачу.
func (q *WriteQueue) Done() <-chan struct{} { return q.done }

// Pending — сколько задач ждёт обработки.
func (q *WriteQueue) Pending() int { return len(q.jobs) }

func (q *WriteQueue) exec(ctx context.Context, job writeJob) {
	pause := q.backoff
	for attempt := 0; ; attempt++ {
		err := job.run(ctx)
		if err == nil {
			return
		}
		if attempt >= q.retries {
			log.WithError(err).WithFields(log.Fields{
				"job":      job.name,
				"attempts": attempt + 1,
			}).Error("Не удалось записать в БД")
			return
		}
		log.WithError(err).WithField("job", job.name).Warn("Запись в БД не прошла, повторяем")
		time.Sleep(pause)
		pause *= 2
	}
}
