/*
Package kernel is the syscall surface of the scheduling core.

A Kernel owns the process table, the dispatcher and the frame pool. Host code
creates processes and spawns their first tasks, then calls Run. Task bodies
call the syscall methods, which act on the running task and its process.

Lock acquisition and semaphore down follow the same admission protocol: the
request is recorded, and when the process has deadlock detection enabled the
allocation state of that resource kind is checked. An unsafe request is
withdrawn and fails with ErrWouldDeadlock, leaving the caller's ledger as it
was.

Syscall exposes the same operations through numeric ids and integer results.
*/
package kernel
