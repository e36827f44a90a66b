/*
Package domain contains the core models of the triage dialog engine.

It is kept free of I/O and persistence concerns, following the same hexagonal split as the
rest of the module: adapters live under pkg/adapters and talk to the core through pkg/ports.

# Key Entities

  - Domain: the closed set of symptom flows that can own a conversation.
  - Value and Slots: typed fields extracted from free text, merged first-write-wins
    (scalars) or by ordered union (lists).
  - DialogState: the per-conversation record {ActiveDomain, Stage, Slots}.
  - Classification: the (tag, confidence) pair produced by an intent classifier.
  - Reply and Handoff: what a turn returns, and the structured summary handed to
    downstream classifiers when a flow reaches its summary stage.
*/
package domain
