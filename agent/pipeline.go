package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/loopwork-ai/docagent/docstore"
	"github.com/loopwork-ai/docagent/mcp"
	"github.com/loopwork-ai/docagent/nlp"
)

// toolForKind maps a query kind to the tool that serves it.
var toolForKind = map[docstore.Kind]string{
	docstore.KindKeyword:    mcp.ToolFindByKeyword,
	docstore.KindSimilarity: mcp.ToolFindBySimilarity,
	docstore.KindRelations:  mcp.ToolFindByRelations,
}

const answerPrompt = `You are a helpful assistant. Use ONLY the following documents to answer the user's question.

First, analyze the relevance of the given documents and provide a feedback starting with "Feedback: ".
Then, compose the final answer starting with "Answer: ".
If the answer is not in the documents, state that in the feedback and answer "I don't know".

Documents:
%s

Question: %s`

// Pipeline answers a question in three fixed steps: classify the question,
// search with the matching tool, then generate an answer from the documents.
type Pipeline struct {
	client     *mcp.Client
	classifier nlp.Classifier
	model      Model
	logger     *slog.Logger
	reporter   Reporter
}

// PipelineResult holds the outcome of each step.
type PipelineResult struct {
	Kind      docstore.Kind
	Documents []string
	Answer    string
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c nlp.Classifier) PipelineOption {
	return func(p *Pipeline) {
		p.classifier = c
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPipelineReporter sets where progress events go.
func WithPipelineReporter(r Reporter) PipelineOption {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

func NewPipeline(client *mcp.Client, model Model, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:     client,
		classifier: nlp.KeywordClassifier{},
		model:      model,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		reporter:   NopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, question string) (*PipelineResult, error) {
	p.reporter.Stage("NLP Analyzing")
	kind, err := p.classifier.Analyze(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("error classifying question: %w", err)
	}
	p.reporter.Note(fmt.Sprintf("Suggested Search: %s", kind))

	p.reporter.Stage("Searching DocStore")
	docs, err := p.search(ctx, kind, question)
	if err != nil {
		return nil, err
	}
	p.reporter.Note(fmt.Sprintf("Found %d documents.", len(docs)))

	p.reporter.Stage("Generating Answer")
	answer, err := p.generate(ctx, question, docs)
	if err != nil {
		p.reporter.Failure(err)
		return nil, err
	}
	p.reporter.Answer(answer)

	return &PipelineResult{Kind: kind, Documents: docs, Answer: answer}, nil
}

func (p *Pipeline) search(ctx context.Context, kind docstore.Kind, question string) ([]string, error) {
	tool, ok := toolForKind[kind]
	if !ok {
		p.logger.Warn("no tool for query kind", "kind", kind)
		return nil, nil
	}

	if _, err := p.client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("error initializing tool server: %w", err)
	}
	arguments, err := json.Marshal(map[string]string{"text": question})
	if err != nil {
		return nil, err
	}
	response, err := p.client.CallTool(ctx, tool, arguments)
	if err != nil {
		return nil, fmt.Errorf("error calling %s: %w", tool, err)
	}
	text, ok := response.FirstText()
	if !ok || response.IsError || text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (p *Pipeline) generate(ctx context.Context, question string, docs []string) (string, error) {
	if composer, ok := p.model.(Composer); ok {
		p.logger.Debug("composing answer without a model call")
		return composer.Compose(question, docs), nil
	}

	prompt := fmt.Sprintf(answerPrompt, strings.Join(docs, "\n"), question)
	completion, err := p.model.Complete(ctx, []Message{UserMessage(prompt)}, nil)
	if err != nil {
		return "", fmt.Errorf("error generating answer: %w", err)
	}
	return completion.Message.Content, nil
}
