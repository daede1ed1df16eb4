// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/retail-copilot/internal/answer"
	"github.com/pdiddy/retail-copilot/pkg/types"
)

// maxLineBytes bounds one input line. Questions are short; 1 MiB is
// generous.
const maxLineBytes = 1 << 20

// Runner answers a single question. *Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, q types.Question) (types.ResultRecord, []string)
}

// BatchSummary tallies a batch by outcome.
type BatchSummary struct {
	Answered int
	NoAnswer int
	Failed   int
}

// Total returns the number of records written.
func (s BatchSummary) Total() int { return s.Answered + s.NoAnswer + s.Failed }

func (s *BatchSummary) count(rec types.ResultRecord) {
	switch {
	case rec.Confidence == answer.ConfidenceFatal:
		s.Failed++
	case rec.FinalAnswer.Present():
		s.Answered++
	default:
		s.NoAnswer++
	}
}

// batchJob is one input line. rec is pre-built for lines that could
// not be parsed, so a bad line costs one error record, not the batch.
type batchJob struct {
	index int
	q     types.Question
	rec   *types.ResultRecord
}

// RunBatch reads JSONL questions from r, answers them on workers
// goroutines, and writes one JSONL result per question to w in input
// order. Progress lines go to progress as questions finish; pass nil
// to silence them. Questions without an id are assigned one.
func RunBatch(ctx context.Context, runner Runner, r io.Reader, w io.Writer, progress io.Writer, workers int) (BatchSummary, error) {
	if workers < 1 {
		workers = 1
	}
	if progress == nil {
		progress = io.Discard
	}

	jobs, err := readJobs(r)
	if err != nil {
		return BatchSummary{}, err
	}

	results := make([]types.ResultRecord, len(jobs))
	jobCh := make(chan batchJob)
	var wg sync.WaitGroup
	var mu sync.Mutex

	report := func(rec types.ResultRecord) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case rec.Confidence == answer.ConfidenceFatal:
			fmt.Fprintf(progress, "failed  %s: %s\n", rec.ID, rec.Explanation)
		case rec.FinalAnswer.Present():
			fmt.Fprintf(progress, "answered %s\n", rec.ID)
		default:
			fmt.Fprintf(progress, "no answer %s\n", rec.ID)
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if j.rec != nil {
					results[j.index] = *j.rec
				} else {
					results[j.index], _ = runner.Run(ctx, j.q)
				}
				report(results[j.index])
			}
		}()
	}
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	var sum BatchSummary
	enc := json.NewEncoder(w)
	for _, rec := range results {
		sum.count(rec)
		if err := enc.Encode(rec); err != nil {
			return sum, fmt.Errorf("writing result: %w", err)
		}
	}
	fmt.Fprintf(progress, "done: %d answered, %d without answer, %d failed\n",
		sum.Answered, sum.NoAnswer, sum.Failed)
	return sum, nil
}

// readJobs parses the JSONL input. Blank lines are skipped; malformed
// lines become error records holding the parse failure.
func readJobs(r io.Reader) ([]batchJob, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var jobs []batchJob
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var q types.Question
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			rec := &types.ResultRecord{
				ID:          uuid.NewString(),
				FinalAnswer: types.NoAnswer(),
				Confidence:  answer.ConfidenceFatal,
				Explanation: fmt.Sprintf("Error: parsing question: %v", err),
				Citations:   []string{},
			}
			jobs = append(jobs, batchJob{index: len(jobs), rec: rec})
			continue
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		jobs = append(jobs, batchJob{index: len(jobs), q: q})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	return jobs, nil
}
