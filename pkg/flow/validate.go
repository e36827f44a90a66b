package flow

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/extract"
)

// Validate checks a decoded definition and prepares it for use: extractors are
// built, the stage index is computed and the summary template is compiled.
// All problems are reported together.
func Validate(def *Definition) error {
	var errs errorList

	if !def.Domain.Valid() {
		errs = append(errs, fmt.Sprintf("unknown domain %q", string(def.Domain)))
	}

	slots := make(map[string]*SlotSpec, len(def.Slots))
	for i := range def.Slots {
		s := &def.Slots[i]
		if s.Key == "" {
			errs = append(errs, fmt.Sprintf("slot %d: missing key", i))
			continue
		}
		if _, dup := slots[s.Key]; dup {
			errs = append(errs, fmt.Sprintf("slot %q: defined twice", s.Key))
			continue
		}
		slots[s.Key] = s

		x, err := extract.Build(s.Params)
		if err != nil {
			errs = append(errs, fmt.Sprintf("slot %q: %v", s.Key, err))
		}
		s.extractor = x

		if s.Missing == "" {
			errs = append(errs, fmt.Sprintf("slot %q: missing placeholder text", s.Key))
		}
		if (s.Kind == extract.KindPolarity || s.Kind == extract.KindYesNo) && (s.True == "" || s.False == "") {
			errs = append(errs, fmt.Sprintf("slot %q: boolean slots need true and false texts", s.Key))
		}
		if s.Format != "" && strings.Count(s.Format, "%s") != 1 {
			errs = append(errs, fmt.Sprintf("slot %q: format must contain exactly one %%s", s.Key))
		}
	}

	def.index = make(map[string]int, len(def.Stages))
	switch {
	case len(def.Stages) < 2:
		errs = append(errs, "a flow needs at least one question stage and a summary")
	case def.Stages[len(def.Stages)-1].ID != SummaryStage:
		errs = append(errs, fmt.Sprintf("last stage must be %q", SummaryStage))
	}
	for i, st := range def.Stages {
		if st.ID == "" {
			errs = append(errs, fmt.Sprintf("stage %d: missing id", i))
			continue
		}
		if _, dup := def.index[st.ID]; dup {
			errs = append(errs, fmt.Sprintf("stage %q: defined twice", st.ID))
			continue
		}
		def.index[st.ID] = i

		if st.ID == SummaryStage {
			if i != len(def.Stages)-1 {
				errs = append(errs, fmt.Sprintf("stage %q must be last", SummaryStage))
			}
			if st.Requires != "" || st.Prompt != "" {
				errs = append(errs, fmt.Sprintf("stage %q takes no prompt or requirement", SummaryStage))
			}
			continue
		}
		if st.Prompt == "" {
			errs = append(errs, fmt.Sprintf("stage %q: missing prompt", st.ID))
		}
		if st.Requires != "" {
			if _, ok := slots[st.Requires]; !ok {
				errs = append(errs, fmt.Sprintf("stage %q requires unknown slot %q", st.ID, st.Requires))
			}
		}
	}
	for _, s := range slots {
		if s.Bound == "" {
			continue
		}
		if _, ok := def.index[s.Bound]; !ok || s.Bound == SummaryStage {
			errs = append(errs, fmt.Sprintf("slot %q: bound to unknown stage %q", s.Key, s.Bound))
		}
	}

	tmpl, err := template.New(string(def.Domain)).Option("missingkey=error").Parse(def.Summary)
	if err != nil {
		errs = append(errs, fmt.Sprintf("summary template: %v", err))
	} else {
		def.summary = tmpl
		if len(errs) == 0 {
			// Render with every slot missing to catch unknown template keys.
			if _, err := renderSummary(def, domain.Slots{}); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if strings.TrimSpace(def.Summary) == "" {
		errs = append(errs, "missing summary template")
	}

	return errs.err()
}
