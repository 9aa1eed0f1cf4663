package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"trello-cloney/domain"
)

const (
	queuePerCPU             = 10
	defaultQueueConcurrency = queuePerCPU
	maxQueueConcurrency     = 128
)

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error)
}

// ActivityQueue exports board activities to an Azure Storage Queue.
type ActivityQueue struct {
	queue            queueClient
	queueConcurrency int
}

// NewActivityQueue connects to the named queue using the storage account
// connection string.
func NewActivityQueue(connStr, queueName string) (*ActivityQueue, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 30,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &ActivityQueue{queue: q, queueConcurrency: queueConcurrencyForCPU(runtime.NumCPU())}, nil
}

func queueConcurrencyForCPU(cpu int) int {
	if cpu < 1 {
		return defaultQueueConcurrency
	}
	n := cpu * queuePerCPU
	if n > maxQueueConcurrency {
		n = maxQueueConcurrency
	}
	return n
}

// Ping checks that the queue is reachable.
func (q *ActivityQueue) Ping(ctx context.Context) error {
	_, err := q.queue.GetProperties(ctx, nil)
	return err
}

// PublishActivities enqueues one message per activity. Messages are sent
// concurrently; the first failure is returned after all sends finish.
func (q *ActivityQueue) PublishActivities(ctx context.Context, userID string, acts []domain.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	payloads := make([]string, len(acts))
	for i, a := range acts {
		data, err := sonic.Marshal(domain.ActivityEnvelope{UserID: userID, Activity: a})
		if err != nil {
			return fmt.Errorf("encode activity %s: %w", a.ID, err)
		}
		payloads[i] = string(data)
	}

	workers := q.queueConcurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(payloads) {
		workers = len(payloads)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	next := make(chan string)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range next {
				if _, err := q.queue.EnqueueMessage(ctx, msg, nil); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}
feed:
	for _, msg := range payloads {
		select {
		case next <- msg:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
