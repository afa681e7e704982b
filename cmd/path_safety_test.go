package cmd

import (
	"testing"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
)

func TestSafeProjectPath(t *testing.T) {
	root := "/tmp/project"

	tests := []struct {
		name     string
		input    string
		platform pathvalue.Platform
		root     string
		wantErr  bool
		wantPath string
	}{
		{name: "simple relative path", input: "prompts/a.md", wantPath: "/tmp/project/prompts/a.md"},
		{name: "normalized path", input: "./prompts//a.md", wantPath: "/tmp/project/prompts/a.md"},
		{name: "any parent segment", input: "prompts/../prompts/a.md", wantErr: true},
		{name: "traversal parent", input: "../outside.md", wantErr: true},
		{name: "deep traversal", input: "prompts/../../outside.md", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "absolute", input: "/etc/passwd", wantErr: true},
		{
			name:     "windows",
			input:    `schema\v1`,
			platform: pathvalue.Windows,
			root:     `C:\project`,
			wantPath: `C:\project\schema\v1`,
		},
		{name: "windows absolute", input: `D:\schema`, platform: pathvalue.Windows, root: `C:\project`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := root
			if tt.root != "" {
				base = tt.root
			}

			got, err := safeProjectPath(base, tt.input, tt.platform)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got path %q", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantPath {
				t.Fatalf("path = %q, want %q", got, tt.wantPath)
			}
		})
	}
}
