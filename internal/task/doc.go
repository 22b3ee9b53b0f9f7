// Package task runs user messages asynchronously. A Service stores each
// submitted message as a job and publishes its id to a queue (in-memory,
// Redis list or RabbitMQ); a Processor consumes the ids with a worker pool,
// hands them to the orchestrator and re-queues retryable failures.
package task
