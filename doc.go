/*
Package triage is a rule-driven symptom triage dialog engine.

It collects symptom details from free-text turns, passively extracting
structured slots (duration, severity, temperature, locations, yes/no answers)
on every turn. It walks a per-domain question sequence only as far as the
answers require, and finishes with a deterministic summary plus a structured
Handoff for downstream models.

# Concept

Each conversation has one DialogState: the active symptom domain, the current
stage of that domain's flow, and the slots collected so far. A Router decides
per turn whether the text continues the active flow or starts a new one,
consulting an intent classifier only when no flow is active. Flows are
declarative YAML tables run by one generic engine (package flow).

# Usage

	svc, err := triage.New()
	if err != nil {
		log.Fatal(err)
	}

	reply, err := svc.Handle(ctx, "session-123", "I have a headache", false)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Text) // "I'm sorry to hear about the pain. Where exactly is the headache: ..."

	reply, _ = svc.Handle(ctx, "session-123", "front, severity 7, for 2 days", false)

When reply.Final is set, reply.Handoff carries the summary and the condensed
model input, and the session has already been reset.
*/
package triage
