package mcpserver

// NoteFormatContract describes the Markdown note format that LLM consumers
// should follow when editing notes.
const NoteFormatContract = `# Wiki Note Format Contract

Every note is a Markdown file below the wiki home. Its file name (without
` + "`" + `.md` + "`" + `) is the note id; new notes get a timestamp id.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # used for link text and listings
date: 2025-01-15                    # OPTIONAL - configured date format
time: 09:30:00                      # OPTIONAL - configured time format, defaults to midnight
tags: project::wiki reading         # OPTIONAL - space separated string or YAML list
---

Body text in standard Markdown.

Link other notes with ordinary relative links: [Other note](../dir/20250115093000.md).
` + "```" + `

## Rules

1. **Frontmatter** is a ` + "`" + `---` + "`" + ` fenced YAML block on the very first line.
2. **Tags** may be hierarchical with ` + "`" + `::` + "`" + ` separators (` + "`" + `project::wiki` + "`" + `).
3. **Links** are relative to the linking note's directory. Destinations with
   spaces are wrapped in angle brackets: ` + "`" + `[x](<my note.md>)` + "`" + `.
4. **Encoding** is UTF-8 with a trailing newline.

## Generated sections

A line containing ` + "`" + `wikiplugin_autogenerate <command> [args]` + "`" + ` starts a section whose
content is rewritten by the ` + "`" + `regenerate_sections` + "`" + ` tool, up to the next line containing
` + "`" + `wikiplugin_autogenerate_end` + "`" + `. Do not edit between the markers.

- ` + "`" + `index [dir];[title|date|id]` + "`" + ` lists the notes under dir.
- ` + "`" + `backlinks` + "`" + ` lists the notes linking here.
- ` + "`" + `explore` + "`" + ` lists every note reachable through links.

` + "```" + `markdown
<!-- wikiplugin_autogenerate index projects;date -->
- [Kickoff](projects/20250101090000.md)
<!-- wikiplugin_autogenerate_end -->
` + "```" + `
`
