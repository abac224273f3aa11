package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-asset/backend/config"
	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/internal/service"
	"campus-asset/backend/pkg/database"
	"campus-asset/backend/pkg/jwt"
	"campus-asset/backend/pkg/kvstore"
	applogger "campus-asset/backend/pkg/logger"
	"campus-asset/backend/pkg/redis"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "assetctl",
	Short:         "转固资产运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ASSET_CONFIG"), "配置文件路径")
	rootCmd.AddCommand(tokenCmd(), migrateCmd(), projectsCmd(), exportCmd(), resyncCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// ── 运行环境 ──

type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  kvstore.Store
	svc    *service.Service
	db     *gorm.DB
	rdb    *redis.Client
}

// openEnv 按配置打开存储并组装 Service，不启用附件文件存储
func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	deps := kvstore.Deps{ChannelPrefix: cfg.Redis.ChannelPrefix, Logger: logger}
	switch cfg.Store.Driver {
	case "postgres":
		if e.db, err = database.NewDB(&cfg.Database, "warn", logger); err != nil {
			return nil, err
		}
		deps.DB = e.db
	case "redis":
		if e.rdb, err = redis.NewClient(&cfg.Redis, logger); err != nil {
			return nil, err
		}
		deps.Redis = e.rdb.Raw()
	}

	if e.store, err = kvstore.Open(&cfg.Store, deps); err != nil {
		e.close()
		return nil, err
	}
	repo := repository.NewRepository(e.store, cfg.Store.KeyPrefix, cfg.Audit.MaxEntries)
	e.svc = service.NewService(cfg, repo, nil, logger)
	return e, nil
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
	if e.db != nil {
		if sqlDB, _ := e.db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}
	if e.rdb != nil {
		e.rdb.Close()
	}
	e.logger.Sync()
}

// ── token ──

func tokenCmd() *cobra.Command {
	var operator, role, dept string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发操作人 Token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.NewManager(&cfg.Auth).GenerateToken(operator, role, dept)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "操作人姓名")
	cmd.Flags().StringVar(&role, "role", "asset_admin", "角色")
	cmd.Flags().StringVar(&dept, "dept", "", "所属部门")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

// ── migrate ──

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行 PostgreSQL 存储表迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return database.RunMigrations(sqlDB, logger)
		},
	}
}

// ── projects ──

func projectsCmd() *cobra.Command {
	var status string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "列出项目及当前阶段",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			list, _, err := e.svc.Project.List(cmd.Context(), &dto.ProjectListRequest{
				PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 100},
				Status:            status,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"编号", "名称", "年度", "状态", "附件完成度", "已归档"})
			for _, p := range list {
				tw.AppendRow(table.Row{p.ID, p.Name, p.Year, p.DisplayStatus, strconv.Itoa(p.CompletionPercent) + "%", p.IsArchived})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "按状态过滤")
	cmd.Flags().BoolVar(&asJSON, "json", false, "输出 JSON")
	return cmd
}

// ── export ──

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "export [inventory|projects]",
		Short:     "导出台账为 Excel",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"inventory", "projects"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			export := e.svc.Export.ExportInventory
			if args[0] == "projects" {
				export = e.svc.Export.ExportProjects
			}
			buf, filename, err := export(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = filename
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件，默认使用导出文件名")
	return cmd
}

// ── resync ──

func resyncCmd() *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "resync <project-id>",
		Short: "为已归档项目重新生成楼宇/房间台账",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			op := model.Operator{Name: operator, Role: "admin"}
			if err := e.svc.Inventory.Resync(cmd.Context(), args[0], op); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已重新同步 %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "assetctl", "写入操作日志的操作人")
	return cmd
}
