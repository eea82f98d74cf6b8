package mcpserver

// StoryFormatContract describes the story document format that LLM
// consumers should follow when creating or updating stories.
const StoryFormatContract = `# Storyloom Story Format Contract

Every story stored in the library is a UTF-8 JSON document with a
` + "`" + `.json` + "`" + ` extension.

## Structure

` + "```" + `json
{
  "characters": [
    {"id": "alice", "name": "Alice"}
  ],
  "nodes": {
    "intro": {
      "text": "Hello, I am {alice}.",
      "choices": [
        {"text": "Goodbye", "next": "outro", "function_name": null, "id": "c-1"},
        {"text": "Stay", "next": "", "function_name": "on_stay", "id": "c-2"}
      ],
      "isEnding": false,
      "position": {"x": 100, "y": 100},
      "function_name": null,
      "speaker": "alice",
      "is_me": false
    },
    "outro": {
      "text": "Farewell.",
      "choices": [],
      "isEnding": true,
      "position": {"x": 400, "y": 100},
      "function_name": null,
      "speaker": null,
      "is_me": true
    }
  }
}
` + "```" + `

## Rules

1. **` + "`" + `nodes` + "`" + ` is required** and maps node ids to node records. Key order is
   kept; the first node is where a freshly opened story starts.
2. **A node is branching or linear.** A branching node has a non-empty
   ` + "`" + `choices` + "`" + ` list and its ` + "`" + `next` + "`" + ` is ignored. A linear node has
   ` + "`" + `"choices": []` + "`" + ` and an optional ` + "`" + `next` + "`" + ` node id.
3. **Choice order is significant.** The i-th choice is the i-th option shown to
   the player. ` + "`" + `"next": ""` + "`" + ` marks a choice that leads nowhere yet.
4. **Optional strings are null, not empty.** ` + "`" + `speaker` + "`" + ` and
   ` + "`" + `function_name` + "`" + ` are ` + "`" + `null` + "`" + ` when unset.
5. **Speakers and placeholders refer to character ids.** ` + "`" + `{alice}` + "`" + ` in any
   text is replaced by the character's name during playback; unknown ids
   render as ` + "`" + `NULL` + "`" + `.
6. **` + "`" + `position` + "`" + ` is optional** on input; nodes without one are laid out on a
   grid when the story is opened for editing.
7. **Legacy documents** that put node records at the root (no ` + "`" + `nodes` + "`" + `,
   no ` + "`" + `characters` + "`" + `) are still read, but new stories must use the layout above.
8. **File paths** end with ` + "`" + `.json` + "`" + `, use forward slashes and English names.

## Translation keys

` + "`" + `extract_translations` + "`" + ` emits ` + "`" + `<nodeId>` + "`" + ` for node text and
` + "`" + `<nodeId>_choice_<index>` + "`" + ` for choice text, index counted from 0.
`
