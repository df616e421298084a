package ngramindex

import (
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultChunkSize is the number of rows per shard unless configured.
const DefaultChunkSize int64 = 2_500_000

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrNoOrders         = errors.New("no n-gram orders configured")
)

const (
	chunkWritten = "written"
	chunkSkipped = "skipped"
)

// DefaultOrders returns the n-gram orders processed unless configured.
func DefaultOrders() []int { return []int{1, 2, 3, 4, 5} }

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	OutputDir string
	ChunkSize int64
	Orders    []int
	// Resume skips chunks whose shard file already exists instead of wiping
	// the output tree first. Existing shards are not verified.
	Resume bool
	// BaseDir, when set, is joined in front of every row path.
	BaseDir string

	// Cache configures the per-order LineCache. Logger and Metrics are
	// inherited from the pipeline when unset.
	Cache   CacheOptions
	Logger  logrus.FieldLogger
	Metrics *Metrics
}

// DefaultPipelineConfig returns a config with the default chunk size, orders
// and cache options. OutputDir must still be set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize: DefaultChunkSize,
		Orders:    DefaultOrders(),
		Cache:     DefaultOptions(),
	}
}

// OrderReport summarises the work done for one order.
type OrderReport struct {
	Order      int
	Rows       int64
	ChunkLabel int64
	Written    int
	Skipped    int
	Cache      Stats
}

// Report summarises a run.
type Report struct {
	ChunkSize int64
	Orders    []OrderReport
}

// Pipeline materializes shard files for every configured order, one order,
// one chunk and one row at a time.
type Pipeline struct {
	opener  SourceOpener
	cfg     PipelineConfig
	logger  logrus.FieldLogger
	bufPool *sync.Pool
}

func NewPipeline(opener SourceOpener, cfg PipelineConfig) (*Pipeline, error) {
	if opener == nil {
		return nil, errors.New("record source opener is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.ChunkSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidChunkSize, "got %d", cfg.ChunkSize)
	}
	if len(cfg.Orders) == 0 {
		return nil, ErrNoOrders
	}
	seen := make(map[int]struct{}, len(cfg.Orders))
	for _, n := range cfg.Orders {
		if n <= 0 {
			return nil, errors.Errorf("invalid n-gram order %d", n)
		}
		if _, dup := seen[n]; dup {
			return nil, errors.Errorf("duplicate n-gram order %d", n)
		}
		seen[n] = struct{}{}
	}

	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Cache.Logger == nil {
		cfg.Cache.Logger = cfg.Logger
	}
	if cfg.Cache.Metrics == nil {
		cfg.Cache.Metrics = cfg.Metrics
	}

	return &Pipeline{
		opener:  opener,
		cfg:     cfg,
		logger:  cfg.Logger,
		bufPool: newChunkBufPool(),
	}, nil
}

// Run processes every order. The first error aborts the run; shards written
// before it stay in place for a later resume.
func (p *Pipeline) Run() (Report, error) {
	out := p.cfg.OutputDir
	if err := prepareOutput(out, p.cfg.Resume); err != nil {
		return Report{}, err
	}

	requested := p.cfg.ChunkSize
	changed, err := verifyOrWriteManifest(manifestPath(out), &p.cfg)
	if err != nil {
		return Report{}, errors.Wrap(err, "run manifest")
	}
	if changed {
		p.logger.WithFields(logrus.Fields{
			"action":    "resume_manifest",
			"requested": requested,
			"persisted": p.cfg.ChunkSize,
		}).Warn("resuming with the chunk size of the existing output tree")
	}

	report := Report{ChunkSize: p.cfg.ChunkSize}
	for _, n := range p.cfg.Orders {
		or, err := p.runOrder(n)
		report.Orders = append(report.Orders, or)
		if err != nil {
			return report, errors.Wrapf(err, "order %d", n)
		}
	}
	return report, nil
}

func (p *Pipeline) runOrder(n int) (rep OrderReport, err error) {
	rep.Order = n
	out := p.cfg.OutputDir
	size := p.cfg.ChunkSize

	if err := prepareOrderDir(out, n); err != nil {
		return rep, err
	}

	src, err := p.opener.Open(n)
	if err != nil {
		return rep, errors.Wrap(err, "open record source")
	}
	rep.Rows = src.NumRows()
	if err := src.Close(); err != nil {
		return rep, errors.Wrap(err, "close record source")
	}
	rep.ChunkLabel = ChunkCountLabel(rep.Rows, size)

	log := p.logger.WithField("order", n)
	log.WithField("rows", rep.Rows).Infof("%d-grams: %d", n, rep.Rows)

	cache, err := NewLineCacheWithOptions(p.cfg.Cache)
	if err != nil {
		return rep, err
	}
	defer func() {
		rep.Cache = cache.GetStats()
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close line cache")
		}
	}()

	for _, c := range PlanChunks(n, rep.Rows, size) {
		path := ShardPath(out, n, c.Index, rep.ChunkLabel)

		if p.cfg.Resume {
			exists, err := shardExists(path)
			if err != nil {
				return rep, err
			}
			if exists {
				rep.Skipped++
				p.cfg.Metrics.chunk(n, chunkSkipped, 0, 0)
				log.WithField("chunk", c.Index).Debug("shard exists, skipping chunk")
				continue
			}
		}

		if err := p.materialize(cache, c, path, log); err != nil {
			return rep, errors.Wrapf(err, "chunk %d", c.Index)
		}
		rep.Written++
	}
	return rep, nil
}

// materialize resolves the rows of c in order and writes them as one shard.
func (p *Pipeline) materialize(cache *LineCache, c Chunk, path string, log logrus.FieldLogger) (err error) {
	start := time.Now()
	log = log.WithField("chunk", c.Index)
	log.Infof("Loading chunk %d", c.Index)

	src, err := p.opener.Open(c.Order)
	if err != nil {
		return errors.Wrap(err, "open record source")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close record source")
		}
	}()
	if err := src.SeekToRow(c.Offset); err != nil {
		return err
	}

	buf := p.getBufFromPool()
	defer p.returnBufToPool(buf)

	var rows int64
	for ; rows < c.Width; rows++ {
		ref, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		*buf, err = cache.AppendLine(*buf, underBase(p.cfg.BaseDir, ref.Path), ref.Offset)
		if err != nil {
			return errors.Wrapf(err, "resolve row %d", c.Offset+rows)
		}
	}

	if err := writeShard(path, *buf); err != nil {
		return err
	}

	took := time.Since(start)
	p.cfg.Metrics.chunk(c.Order, chunkWritten, int(rows), took)
	log.WithFields(logrus.Fields{
		"rows":  rows,
		"size":  humanize.Bytes(uint64(len(*buf))),
		"took":  took,
		"cache": cache.Len(),
	}).Infof("Done with chunk %d", c.Index)
	return nil
}
