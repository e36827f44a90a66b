/*
Package runner implements utterance cleaning and the interactive terminal chat loop.

CleanUtterance is applied to every inbound message before it reaches the router.
It rejects invalid UTF-8 and messages longer than TRIAGE_MAX_UTTERANCE_RUNES
(default 2000 runes), drops terminal escapes and control characters, and
collapses the message to one trimmed line.

Chat drives a Handler (typically *triage.Service) from line-oriented IO:

	chat := runner.NewChat(svc,
		runner.WithSessionID("local"),
		runner.WithRenderer(func(md string) (string, error) {
			return glamour.Render(md, "dark")
		}),
	)
	if err := chat.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
