/*
Package ksync implements the synchronization primitives shared by the tasks of
one process: a spin lock, a blocking lock, a counting semaphore and a condition
variable.

Primitives suspend tasks through a Dispatcher and never hold their own mutex
across a suspension. Waiters are served in FIFO order.

Locks and semaphores carry the process.ResourceID they are registered under and
record the grant in the receiving task's ledger at the moment ownership or a
unit is handed over, either immediately when it is free or by the releaser
when the receiver had to wait.
*/
package ksync
