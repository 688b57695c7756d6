package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/forgebot/forgebot/internal/events"
)

// JobsFileName is the job configuration file looked up in the root of
// the repository an event points at.
const JobsFileName = ".forgebot.yml"

var (
	ErrJobsConfigNotFound = errors.New("job configuration file not found")
	ErrJobsConfigParsing  = errors.New("job configuration parsing failed")
)

// JobType identifies one kind of automation job a repository can declare.
type JobType string

const (
	JobCoprBuild          JobType = "copr_build"
	JobUpstreamKojiBuild  JobType = "upstream_koji_build"
	JobTests              JobType = "tests"
	JobProposeDownstream  JobType = "propose_downstream"
	JobSyncFromDownstream JobType = "sync_from_downstream"
	JobBodhiUpdate        JobType = "bodhi_update"
)

// jobTypeAliases maps deprecated or shorthand names still accepted in
// configuration files to their canonical job type.
var jobTypeAliases = map[string]JobType{
	"build":            JobCoprBuild,
	"production_build": JobUpstreamKojiBuild,
}

// supportedTriggers lists, per job type, the triggers users may declare.
// A pair outside this table is a user configuration error, not a crash.
var supportedTriggers = map[JobType][]events.JobTrigger{
	JobCoprBuild:          {events.JobTriggerPullRequest, events.JobTriggerCommit, events.JobTriggerRelease},
	JobUpstreamKojiBuild:  {events.JobTriggerPullRequest, events.JobTriggerCommit, events.JobTriggerRelease},
	JobTests:              {events.JobTriggerPullRequest, events.JobTriggerCommit},
	JobProposeDownstream:  {events.JobTriggerRelease},
	JobSyncFromDownstream: {events.JobTriggerCommit},
	JobBodhiUpdate:        {events.JobTriggerCommit, events.JobTriggerRelease},
}

// UnmarshalYAML resolves aliases so downstream code only ever sees
// canonical job types.
func (t *JobType) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if canonical, ok := jobTypeAliases[raw]; ok {
		*t = canonical
		return nil
	}
	*t = JobType(raw)
	return nil
}

// JobConfig is one user-declared automation job.
type JobConfig struct {
	Type    JobType           `yaml:"job"`
	Trigger events.JobTrigger `yaml:"trigger"`

	Targets []string `yaml:"targets"`
	Branch  string   `yaml:"branch"`
	Owner   string   `yaml:"owner"`
	Project string   `yaml:"project"`
	// ManualTrigger restricts the job to comment retriggers and result
	// events; automatic triggers skip it.
	ManualTrigger bool `yaml:"manual_trigger"`
	// Metadata passes through any extra keys a handler may care about.
	Metadata map[string]any `yaml:"metadata"`
}

// JobsConfig is a repository's full declared configuration.
// Declaration order is preserved: when several jobs match the same
// handler, the first declared one wins.
type JobsConfig struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// Validate surfaces user configuration errors as messages. It never
// panics: a bad config file is a user problem reported back to them.
func (c *JobsConfig) Validate() error {
	for i := range c.Jobs {
		job := &c.Jobs[i]
		allowed, ok := supportedTriggers[job.Type]
		if !ok {
			return fmt.Errorf("job %d: unknown job type %q", i, job.Type)
		}
		found := false
		for _, t := range allowed {
			if t == job.Trigger {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("job %d: job type %q does not support trigger %q", i, job.Type, job.Trigger)
		}
	}
	return nil
}

// LoadJobsConfig loads and parses the job configuration from a checked
// out repository path.
func LoadJobsConfig(repoPath string) (*JobsConfig, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, JobsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrJobsConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", JobsFileName, err)
	}

	var cfg JobsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobsConfigParsing, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobsConfigParsing, err)
	}
	return &cfg, nil
}
