package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/storage/database"
	"github.com/dkamau/elimu/storage/database/pgxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// set up DB
	var db *pgxpool.Pool
	db, err = database.Open(ctx, conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: pgxrepos.NewUserRepository(db),
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
