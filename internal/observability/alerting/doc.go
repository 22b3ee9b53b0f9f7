// Package alerting fans job failure events out to notifiers such as the
// structured log and a Slack incoming webhook.
package alerting
