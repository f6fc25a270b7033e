package internal

import (
	"bytes"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	maxCommands      = 50
	maxCommandRunes  = 200
	maxCommitMsgRune = 100
)

// parseClaudeJSONL reads a line-delimited event transcript. Each line is an
// independent record; lines that are not JSON objects are skipped.
func parseClaudeJSONL(payload []byte) (*transcript, error) {
	tr := &transcript{}
	ex := newToolExtractor()
	dedup := NewDeduplicator()
	valid := 0
	lastMessageID := ""

	for rest := payload; len(rest) > 0; {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			LogDebug("skipping malformed transcript line (%d bytes)", len(line))
			continue
		}
		rec := gjson.ParseBytes(line)
		if !rec.IsObject() {
			continue
		}
		valid++
		if dedup.Seen(rec.Get("uuid").String(), line) {
			LogDebug("skipping replayed transcript record")
			continue
		}

		if ts, ok := parseTimestamp(rec.Get("timestamp").String()); ok {
			tr.timestamps = append(tr.timestamps, ts)
		}
		if tr.sessionID == "" {
			tr.sessionID = rec.Get("sessionId").String()
		}
		if tr.cwd == "" {
			tr.cwd = rec.Get("cwd").String()
		}
		if tr.meta.GitBranch == "" {
			tr.meta.GitBranch = rec.Get("gitBranch").String()
		}

		switch rec.Get("type").String() {
		case "user":
			if text := userText(rec.Get("message.content")); text != "" {
				tr.turns = append(tr.turns, Turn{Role: RoleUser, Content: text})
				lastMessageID = ""
			}
		case "assistant":
			msg := rec.Get("message")
			msgID := msg.Get("id").String()
			if tr.model == "" {
				tr.model = msg.Get("model").String()
			}
			if dedup.CountUsage(msgID) {
				usage := msg.Get("usage")
				tr.meta.InputTokens += usage.Get("input_tokens").Int() +
					usage.Get("cache_creation_input_tokens").Int() +
					usage.Get("cache_read_input_tokens").Int()
				tr.meta.OutputTokens += usage.Get("output_tokens").Int()
			}

			text := assistantText(msg.Get("content"), ex)
			if text == "" {
				continue
			}
			// later blocks of the same streamed message extend its turn
			if n := len(tr.turns); msgID != "" && msgID == lastMessageID && n > 0 && tr.turns[n-1].Role == RoleAssistant {
				tr.turns[n-1].Content += "\n\n" + text
			} else {
				tr.turns = append(tr.turns, Turn{Role: RoleAssistant, Content: text})
			}
			lastMessageID = msgID
		}
	}

	if valid == 0 {
		return nil, newParseError(FormatClaudeJSONL, "", errNoRecords)
	}
	ex.apply(&tr.meta)
	return tr, nil
}

// userText returns the prompt text of a user record. Tool results and
// wrapped command output (text starting with '<') are not prompts.
func userText(content gjson.Result) string {
	if content.Type == gjson.String {
		return promptText(content.String())
	}
	var parts []string
	content.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "tool_result" {
			return true
		}
		if t := promptText(item.Get("text").String()); t != "" {
			parts = append(parts, t)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func promptText(s string) string {
	if strings.TrimSpace(s) == "" || strings.HasPrefix(strings.TrimLeft(s, " \t\r\n"), "<") {
		return ""
	}
	return s
}

func assistantText(content gjson.Result, ex *toolExtractor) string {
	if content.Type == gjson.String {
		return content.String()
	}
	var parts []string
	content.ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").String() {
		case "text":
			if t := item.Get("text").String(); strings.TrimSpace(t) != "" {
				parts = append(parts, t)
			}
		case "tool_use":
			ex.observe(item.Get("name").String(), item.Get("input"))
		}
		return true
	})
	return strings.Join(parts, "\n")
}

// toolExtractor accumulates descriptive metadata from tool_use blocks
type toolExtractor struct {
	modified map[string]struct{}
	read     map[string]struct{}
	seenCmd  map[string]struct{}
	commands []string
	commits  []string
	counts   map[string]int
}

func newToolExtractor() *toolExtractor {
	return &toolExtractor{
		modified: make(map[string]struct{}),
		read:     make(map[string]struct{}),
		seenCmd:  make(map[string]struct{}),
		counts:   make(map[string]int),
	}
}

func (x *toolExtractor) observe(name string, input gjson.Result) {
	if name == "" {
		return
	}
	x.counts[name]++

	switch name {
	case "Write", "Edit", "MultiEdit":
		if p := input.Get("file_path").String(); p != "" {
			x.modified[p] = struct{}{}
		}
	case "NotebookEdit":
		if p := input.Get("notebook_path").String(); p != "" {
			x.modified[p] = struct{}{}
		}
	case "Read":
		if p := input.Get("file_path").String(); p != "" {
			x.read[p] = struct{}{}
		}
	case "Bash":
		cmd := input.Get("command").String()
		if cmd == "" {
			return
		}
		short := Truncate(cmd, maxCommandRunes)
		if _, dup := x.seenCmd[short]; !dup && len(x.commands) < maxCommands {
			x.seenCmd[short] = struct{}{}
			x.commands = append(x.commands, short)
		}
		if strings.Contains(cmd, "git commit") {
			if msg, ok := commitMessage(cmd); ok {
				x.commits = append(x.commits, msg)
			}
		}
	}
}

func (x *toolExtractor) apply(m *Metadata) {
	m.FilesModified = sortedKeys(x.modified)
	m.FilesRead = sortedKeys(x.read)
	m.CommandsRun = x.commands
	m.GitCommits = x.commits
	if len(x.counts) > 0 {
		m.ToolCounts = x.counts
	}
}

// commitMessage pulls the -m argument out of a git commit command line.
func commitMessage(cmd string) (string, bool) {
	idx := strings.Index(cmd, "-m ")
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(cmd[idx+3:])
	if rest == "" {
		return "", false
	}
	if q := rest[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return "", false
		}
		return rest[1 : end+1], true
	}
	// heredoc style: keep a bounded chunk
	return Truncate(rest, maxCommitMsgRune), true
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
