package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltjob"
)

// jobYAML is the YAML representation of one boltjob.Job.
type jobYAML struct {
	Name                 string            `yaml:"name"`
	PublisherArgs        map[string]string `yaml:"publisher_args,omitempty"`
	PartnerArgs          map[string]string `yaml:"partner_args,omitempty"`
	FinalStage           string            `yaml:"final_stage,omitempty"`
	StageTimeoutOverride string            `yaml:"stage_timeout_override,omitempty"`
}

// jobsFile is the top-level YAML structure for a job-batch file.
type jobsFile struct {
	Jobs []jobYAML `yaml:"jobs"`
}

// LoadJobsFile loads a batch of job descriptions from a YAML file.
func LoadJobsFile(path string) ([]boltjob.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jobspec: reading %s: %w", path, err)
	}
	return ParseJobsYAML(data)
}

// ParseJobsYAML parses a batch of job descriptions from YAML bytes.
func ParseJobsYAML(data []byte) ([]boltjob.Job, error) {
	var file jobsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("jobspec: parsing YAML: %w", err)
	}

	jobs := make([]boltjob.Job, 0, len(file.Jobs))
	for _, j := range file.Jobs {
		name := j.Name
		if name == "" {
			// Unnamed batch entries still need a unique job name for
			// logging/metrics labels and the /jobs history.
			name = "job-" + uuid.NewString()
		}

		job := boltjob.Job{
			Name:          name,
			PublisherArgs: boltclient.Args(j.PublisherArgs),
			PartnerArgs:   boltclient.Args(j.PartnerArgs),
			FinalStage:    j.FinalStage,
		}

		if j.StageTimeoutOverride != "" {
			d, err := time.ParseDuration(j.StageTimeoutOverride)
			if err != nil {
				return nil, fmt.Errorf("jobspec: job %q: invalid stage_timeout_override: %w", name, err)
			}
			job.StageTimeoutOverride = d
		}

		jobs = append(jobs, job)
	}
	return jobs, nil
}
