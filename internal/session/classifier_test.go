package session

import "testing"

func TestMarkerClassifier(t *testing.T) {
	c := MarkerClassifier{}

	tests := []struct {
		name       string
		raw        string
		wantInput  bool
		wantPrompt string
	}{
		{
			name:       "explicit marker",
			raw:        "[HUMAN INPUT REQUESTED] Which service do you mean?",
			wantInput:  true,
			wantPrompt: "Which service do you mean?",
		},
		{
			name:       "underscore marker",
			raw:        "HUMAN_INPUT_REQUESTED please pick one",
			wantInput:  true,
			wantPrompt: "please pick one",
		},
		{
			name:       "marker on later line",
			raw:        "I looked at the logs.\n[HUMAN INPUT] What time range interests you?",
			wantInput:  true,
			wantPrompt: "What time range interests you?",
		},
		{
			name:       "question heuristic",
			raw:        "Could you specify the service name?",
			wantInput:  true,
			wantPrompt: "Could you specify the service name?",
		},
		{
			name:       "heuristic needs question mark",
			raw:        "Please specify the service name.",
			wantInput:  false,
			wantPrompt: "",
		},
		{
			name:       "question without request verb",
			raw:        "Interesting, isn't it?",
			wantInput:  false,
			wantPrompt: "",
		},
		{
			name:       "decorated line cleaned",
			raw:        "**[HUMAN INPUT REQUESTED]** What would you like to count?",
			wantInput:  true,
			wantPrompt: "What would you like to count?",
		},
		{
			name:       "marker with nothing else falls back",
			raw:        "[HUMAN INPUT REQUESTED]",
			wantInput:  true,
			wantPrompt: FallbackPrompt,
		},
		{
			name:      "plain answer",
			raw:       "There are 5 WARN logs, all from Accounting.",
			wantInput: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, needsInput := c.Classify(tt.raw)
			if needsInput != tt.wantInput {
				t.Fatalf("Classify(%q) needsInput = %v, want %v", tt.raw, needsInput, tt.wantInput)
			}
			if needsInput && prompt != tt.wantPrompt {
				t.Errorf("prompt = %q, want %q", prompt, tt.wantPrompt)
			}
		})
	}
}
