package main

import (
	"log"
	"os"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/course"
	emailsvc "github.com/workill/worknote/services/email"
	logsvc "github.com/workill/worknote/services/logger"
	"github.com/workill/worknote/storage/database"
	sqlxrepos "github.com/workill/worknote/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	rollbarLogger := logsvc.NewRollbarLogger(logger, conf)
	rollbarLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	crsSvc := course.NewService(
		sqlxrepos.NewCourseRepository(db),
		emailsvc.NewConsoleService(conf),
		rollbarLogger,
		conf,
	)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		crsSvc:  crsSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
