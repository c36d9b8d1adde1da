// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, file storage) and wires the
// auth and scan modules on top of it.
package main

import (
	"context"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/fsx"
	"github.com/Abraxas-365/escolar/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/escolar/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/escolar/pkg/iam/auth"
	"github.com/Abraxas-365/escolar/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/escolar/pkg/jobx"
	"github.com/Abraxas-365/escolar/pkg/jobx/jobxmem"
	"github.com/Abraxas-365/escolar/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrengine"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscanapi"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscaninfra"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscansrv"
)

// Container holds shared infrastructure and the wired modules.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client
	Jobs       *jobx.Client

	// Modules
	Recognizer   *ocr.Instrumented
	AuthHandlers *auth.AuthHandlers
	ScanService  *ocrscansrv.Service
	ScanHandlers *ocrscanapi.Handlers
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure(ctx)
	c.initModules(ctx)

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, file storage, job queue
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. File storage
	c.initFileStorage(ctx)

	// 3. Job queue
	c.initJobQueue(ctx)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage(ctx context.Context) {
	storage := c.Config.Storage

	switch storage.Mode {
	case "s3":
		cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(cfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, storage.AWSBucket, storage.S3Prefix)
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)", storage.AWSBucket, storage.AWSRegion)

	default:
		localFS, err := fsxlocal.NewLocalFileSystem(storage.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", localFS.BasePath())
	}
}

func (c *Container) initJobQueue(ctx context.Context) {
	var queue jobx.Queue

	switch c.Config.Jobx.Backend {
	case "memory":
		queue = jobxmem.NewMemoryQueue()
		logx.Warn("  ⚠️ In-memory job queue: async scans are lost on restart")

	default:
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(ctx).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v (set JOBX_BACKEND=memory to run without it)", err)
		}
		queue = jobxredis.NewRedisQueue(c.Redis, jobxredis.WithResultTTL(c.Config.Jobx.ResultTTL))
		logx.Info("  ✅ Redis job queue connected")
	}

	c.Jobs = jobx.NewClient(queue, jobx.FromConfig(c.Config.Jobx))
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules(ctx context.Context) {
	logx.Info("📦 Initializing modules...")

	// Auth
	users := authinfra.NewPostgresUserRepository(c.DB)
	audit := authinfra.NewLogxAuditService()
	tokens := auth.NewJWTService(c.Config.Auth.JWT)
	c.AuthHandlers = auth.NewAuthHandlers(users, tokens, audit, c.Config.Auth.JWT)

	seeded, err := auth.SeedUser(ctx, users, audit,
		c.Config.Auth.SeedAdminEmail,
		c.Config.Auth.SeedAdminUsername,
		c.Config.Auth.SeedAdminPassword,
		kernel.RoleAdmin,
	)
	if err != nil {
		logx.WithError(err).Error("  ❌ Failed to seed admin user")
	} else if seeded {
		logx.Infof("  ✅ Admin user %s created", c.Config.Auth.SeedAdminEmail)
	}
	logx.Info("  ✅ Auth module ready")

	// OCR engine
	recognizer, err := ocrengine.New(ctx, c.Config.OCR)
	if err != nil {
		logx.Fatalf("Failed to initialize OCR engine %q: %v", c.Config.OCR.Engine, err)
	}
	c.Recognizer = recognizer
	logx.Infof("  ✅ OCR engine: %s", recognizer.Engine())

	// Scans
	c.ScanService = ocrscansrv.NewService(
		recognizer,
		ocrscaninfra.NewPostgresScanRepository(c.DB),
		c.FileSystem,
		c.Jobs,
		c.Config.Scan,
	)
	c.Jobs.Register(ocrscan.JobTypeProcess, c.ScanService.HandleJob)
	c.ScanHandlers = ocrscanapi.NewHandlers(c.ScanService)
	logx.Info("  ✅ Scan module ready")
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices runs the job workers until ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) <-chan struct{} {
	logx.Info("🔄 Starting background services...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithError(err).Error("Job workers stopped with error")
		}
	}()
	return done
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
