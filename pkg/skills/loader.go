// Package skills discovers and loads SKILL.md definitions: workspace-local
// skills override global ones, which override any builtin set.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Skill holds one loaded skill's parsed frontmatter plus its body.
type Skill struct {
	Name        string
	Path        string
	Description string
	Always      bool
	Requires    []string
	Body        string
}

// Loader discovers skills across workspace, global, and builtin directories.
type Loader struct {
	dirs []string
}

// NewLoader returns a Loader that searches, in priority order, the
// workspace's skills/ directory, the user's global ~/.agentcore/skills/
// directory, and builtinDir if non-empty.
func NewLoader(workspace, builtinDir string) *Loader {
	dirs := []string{filepath.Join(workspace, "skills")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".agentcore", "skills"))
	}
	if builtinDir != "" {
		dirs = append(dirs, builtinDir)
	}
	return &Loader{dirs: dirs}
}

// List returns every discoverable skill, workspace overriding global
// overriding builtin for names that appear in more than one directory.
func (l *Loader) List() []Skill {
	seen := make(map[string]bool)
	var out []Skill

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			skillPath := filepath.Join(dir, e.Name(), "SKILL.md")
			content, err := os.ReadFile(skillPath)
			if err != nil {
				continue
			}
			s := parseSkill(e.Name(), skillPath, string(content))
			out = append(out, s)
			seen[e.Name()] = true
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Requirements reports which environment variables in reqs are unset.
func Requirements(reqs []string) []string {
	var missing []string
	for _, r := range reqs {
		if os.Getenv(r) == "" {
			missing = append(missing, r)
		}
	}
	return missing
}

// BuildSkillsSummary returns the XML catalog spliced into the system prompt:
// one <skill> entry per discovered skill, marked available/unavailable by
// whether its requirements are currently satisfied.
func (l *Loader) BuildSkillsSummary() string {
	all := l.List()
	if len(all) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines, "<skills>")
	for _, s := range all {
		missing := Requirements(s.Requires)
		available := "true"
		if len(missing) > 0 {
			available = "false"
		}
		lines = append(lines, fmt.Sprintf(`  <skill available="%s">`, available))
		lines = append(lines, fmt.Sprintf("    <name>%s</name>", escapeXML(s.Name)))
		lines = append(lines, fmt.Sprintf("    <description>%s</description>", escapeXML(s.Description)))
		lines = append(lines, fmt.Sprintf("    <location>%s</location>", escapeXML(s.Path)))
		if len(missing) > 0 {
			lines = append(lines, fmt.Sprintf("    <requires>%s</requires>", escapeXML(strings.Join(missing, ", "))))
		}
		lines = append(lines, "  </skill>")
	}
	lines = append(lines, "</skills>")
	lines = append(lines, "", "Load a skill's full instructions with the read_file tool when its catalog entry looks relevant.")

	return strings.Join(lines, "\n")
}

// BuildActiveSkills concatenates the full bodies of always-on skills whose
// requirements are satisfied, under the "# Active Skills" heading. Returns
// "" if none qualify.
func (l *Loader) BuildActiveSkills() string {
	var bodies []string
	for _, s := range l.List() {
		if !s.Always {
			continue
		}
		if len(Requirements(s.Requires)) > 0 {
			continue
		}
		bodies = append(bodies, s.Body)
	}
	if len(bodies) == 0 {
		return ""
	}
	return "# Active Skills\n\n" + strings.Join(bodies, "\n\n")
}

var frontmatterRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n?`)

func parseSkill(name, path, content string) Skill {
	s := Skill{Name: name, Path: path, Body: content}

	match := frontmatterRe.FindStringSubmatch(content)
	if match == nil {
		return s
	}
	s.Body = content[len(match[0]):]

	scalars, requires := parseFrontmatter(match[1])
	if v, ok := scalars["name"]; ok {
		s.Name = v
	}
	s.Description = scalars["description"]
	s.Always = scalars["always"] == "true"
	s.Requires = requires

	return s
}

// parseFrontmatter is a hand-rolled scanner for the small YAML subset
// SKILL.md frontmatter needs: scalar "key: value" lines, inline
// "requires: [a, b]" lists, and block lists ("requires:" followed by "- a"
// lines).
func parseFrontmatter(block string) (map[string]string, []string) {
	scalars := make(map[string]string)
	var requires []string

	lines := strings.Split(block, "\n")
	inRequiresBlock := false

	for _, line := range lines {
		if inRequiresBlock {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "- ") {
				requires = append(requires, unquote(strings.TrimSpace(trimmed[2:])))
				continue
			}
			inRequiresBlock = false
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if key == "requires" {
			if value == "" {
				inRequiresBlock = true
				continue
			}
			requires = parseInlineList(value)
			continue
		}

		scalars[key] = unquote(value)
	}

	return scalars, requires
}

func parseInlineList(value string) []string {
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		out = append(out, unquote(strings.TrimSpace(item)))
	}
	return out
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
