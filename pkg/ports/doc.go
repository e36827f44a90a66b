/*
Package ports defines the driven ports (interfaces) of the triage service.

These interfaces decouple routing and flow logic from external implementations,
allowing the service to work with various storage backends and downstream consumers.

# Key Interfaces

  - StateStore: Responsible for persisting and loading per-session DialogState.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - HandoffSink: Receives summary handoff records when a flow completes.
*/
package ports
