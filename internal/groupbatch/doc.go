// Package groupbatch detects completion of multi-item upload bursts.
//
// Messaging transports deliver a multi-file album as a rapid sequence of
// discrete events with no "batch complete" signal. The aggregator buffers
// items per group correlation id and resets a one-shot timer on each arrival;
// only a full quiet period drains the buffer downstream. Each pending group
// owns exactly one cancellable timer handle, so replacing the timer can never
// double-drain a buffer.
package groupbatch
