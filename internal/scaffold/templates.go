package scaffold

const configTemplate = `name: my-project

# Mean quality score (0-10) an attempt must reach before review.
threshold: 6.0
max-attempts: 2
auto-approve: false

output-dir: docs
combined-file: technical_documentation.md

backend:
  type: command
  command: claude
  model: sonnet
  timeout: 30

scorer:
  type: heuristic

tasks:
  - name: analyzer
    type: index
    description: Index the codebase into shared state

  - name: structure
    type: generate
    description: Describe modules, layers and entry points
    prompt: .docgen/prompts/structure.md
    context: [analyzer]

  - name: dependencies
    type: generate
    description: Summarize external and internal dependencies
    prompt: .docgen/prompts/dependencies.md
    context: [analyzer, structure]

  - name: semantics
    type: generate
    description: Identify the public API surface and its behavior
    prompt: .docgen/prompts/semantics.md
    context: [analyzer, structure, dependencies]

  - name: architecture_analysis
    type: generate
    description: Analyze components, data flow and design patterns
    prompt: .docgen/prompts/architecture_analysis.md
    context: [analyzer, structure, dependencies, semantics]

  - name: api_docs
    type: generate
    description: Write the API reference
    prompt: .docgen/prompts/api_docs.md
    context: [analyzer, structure, semantics]
    section: API_REFERENCE.md

  - name: architecture_docs
    type: generate
    description: Write the architecture guide with a mermaid diagram
    prompt: .docgen/prompts/architecture_docs.md
    context: [architecture_analysis, dependencies, semantics]
    section: ARCHITECTURE.md

  - name: examples
    type: generate
    description: Write usage examples for the API
    prompt: .docgen/prompts/examples.md
    context: [api_docs]
    section: EXAMPLES.md

  - name: getting_started
    type: generate
    description: Write the README getting started guide
    prompt: .docgen/prompts/getting_started.md
    context: [analyzer, structure, dependencies]
    section: README.md

  - name: review
    type: generate
    description: Review the drafts for gaps and inaccuracies
    prompt: .docgen/prompts/review.md
    context: [api_docs, architecture_docs, examples, getting_started]

  - name: assembler
    type: generate
    description: Assemble the final sectioned document
    prompt: .docgen/prompts/assembler.md
    context: [api_docs, architecture_docs, examples, getting_started, review]
`

const analysisPreamble = `You are documenting the codebase at $FOLDER.
Use only facts from the code analysis and upstream context below. Do not invent files, functions or endpoints.

`

// promptTemplates maps prompt file names under .docgen/prompts to their
// default content.
var promptTemplates = map[string]string{
	"structure.md": analysisPreamble + `## Task

Describe the structure of the project: top-level directories, modules or packages, layers,
and entry points. Note the primary language and build tool.

## Output

A markdown outline of the project structure with one short paragraph per module.
`,
	"dependencies.md": analysisPreamble + `## Task

List the external dependencies (frameworks, drivers, SDKs) and how internal modules depend
on each other. Group external dependencies by purpose.

## Output

A markdown list of dependencies with their role in the project.
`,
	"semantics.md": analysisPreamble + `## Task

Identify the public API surface: HTTP endpoints, CLI commands, exported functions or
classes. For each, state its inputs, outputs and side effects.

## Output

A markdown inventory of the API surface.
`,
	"architecture_analysis.md": analysisPreamble + `## Task

Analyze the architecture: main components, their responsibilities, data flow between
them, persistence, and notable design patterns.

## Output

Markdown notes for the architecture writer.
`,
	"api_docs.md": analysisPreamble + `## Task

Write the API reference. Document every endpoint or public entry point with its method
(as **GET**, **POST** ...), path or signature, parameters, and responses.

## Output

A complete API_REFERENCE.md in markdown, starting with "# API Reference".
`,
	"architecture_docs.md": analysisPreamble + `## Task

Write the architecture guide: overview, components, data flow, and design decisions.
Include one mermaid diagram of the components in a ` + "```mermaid" + ` block.

## Output

A complete ARCHITECTURE.md in markdown, starting with "# Architecture".
`,
	"examples.md": analysisPreamble + `## Task

Write runnable usage examples for the documented API: requests and responses, CLI
invocations, or code snippets in the project's language.

## Output

A complete EXAMPLES.md in markdown, starting with "# Examples".
`,
	"getting_started.md": analysisPreamble + `## Task

Write the README: what the project does, prerequisites, installation, configuration,
and how to run it and its tests.

## Output

A complete README.md in markdown.
`,
	"review.md": analysisPreamble + `## Task

Review the drafts in the upstream context. List missing sections, inconsistencies
between documents, and statements not supported by the code analysis.

## Output

A markdown list of concrete corrections.
`,
	"assembler.md": analysisPreamble + `## Task

Produce the final documentation set from the drafts, applying the review corrections.

## Output

Emit each document after a marker line, exactly in this form:

===SECTION: README.md===
===SECTION: API_REFERENCE.md===
===SECTION: ARCHITECTURE.md===
===SECTION: EXAMPLES.md===
===SECTION: architecture.mermaid===

Put the full content of each document after its marker. The architecture.mermaid
section holds only mermaid source, without fences. Write nothing before the first marker.
`,
}
