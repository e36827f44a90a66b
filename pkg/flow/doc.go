/*
Package flow is the data-driven state machine behind every symptom domain.

Each domain is described by a declarative table (see the flows directory):
an ordered list of stages, the slots that can be extracted, and a summary
template. The Engine interprets those tables against a DialogState.

# Stages

A stage with `requires` re-asks its question until that slot is filled, and is
skipped entirely when the slot was already captured on an earlier turn. A stage
without `requires` is asked once and advances on any reply. The last stage is
always `summary`: reaching it renders the summary, produces a Handoff and
resets the dialog state.

# Slots

Every turn runs every slot extractor of the active domain, whatever the
current stage. A slot marked `bound: <stage>` is only extracted while that
stage is current. Scalars are first-write-wins and lists grow by union.
*/
package flow
