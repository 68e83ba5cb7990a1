package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"

	"github.com/dkamau/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *pgxpool.Pool
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ROLE] - create or update a user; the password is prompted next")
	fmt.Println("  promote -email EMAIL -role ROLE              - change a user's role")
	fmt.Println("  resetpassword -email EMAIL                   - reset a user's password; the password is prompted next")
	fmt.Println("  migrate                                      - apply the database schema")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleStudent, "The user's role.")

	promoteCmd := flag.NewFlagSet("promote", flag.ExitOnError)
	promoteEmail := promoteCmd.String("email", "", "The user's email.")
	promoteRole := promoteCmd.String("role", "", "The role to assign.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, string(pwd), *addUserRole)
	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *promoteEmail == "" || *promoteRole == "" {
			promoteCmd.Usage()
			return errHelp
		}
		return cli.promote(*promoteEmail, *promoteRole)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, string(pwd))
	case "migrate":
		return cli.migrate()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() ([]byte, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	return pwd, err
}
