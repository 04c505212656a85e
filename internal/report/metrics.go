package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder projects a finished Run onto Prometheus metrics. Every value
// can be explained by looking at a single step record.
type Recorder struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration *prometheus.GaugeVec
	runDuration  prometheus.Gauge
	runSuccess   prometheus.Gauge
	lastRun      prometheus.Gauge
	launchExit   prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steward_action_steps_total",
			Help: "Pipeline steps by name and outcome",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steward_action_step_duration_seconds",
			Help: "Wall time of each executed pipeline step",
		}, []string{"step"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steward_action_run_duration_seconds",
			Help: "Wall time of the whole run",
		}),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steward_action_run_success",
			Help: "1 if no step failed, 0 otherwise",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steward_action_last_run_timestamp_seconds",
			Help: "Unix time the run finished",
		}),
		launchExit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steward_action_launch_exit_code",
			Help: "Exit code of the launched Scala Steward process, -1 if it did not start",
		}),
	}
	r.registry.MustRegister(r.steps, r.stepDuration, r.runDuration, r.runSuccess, r.lastRun, r.launchExit)
	r.launchExit.Set(-1)
	return r
}

// Gatherer exposes the recorder's registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordLaunchExit records the launched process's exit code
func (r *Recorder) RecordLaunchExit(code int) {
	r.launchExit.Set(float64(code))
}

// RecordRun updates all metrics from a finished run
func (r *Recorder) RecordRun(run *Run) {
	for _, s := range run.Steps() {
		r.steps.WithLabelValues(s.Name, string(s.Status)).Inc()
		if s.Status != StatusSkipped {
			r.stepDuration.WithLabelValues(s.Name).Set(s.Duration.Seconds())
		}
	}

	r.runDuration.Set(run.Duration().Seconds())
	if run.Succeeded() {
		r.runSuccess.Set(1)
	} else {
		r.runSuccess.Set(0)
	}
	r.lastRun.Set(float64(run.clock().Unix()))
}
