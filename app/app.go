package app

import (
	"github.com/Joss220r/competencia-Desarrollo/config"
	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/survey"
)

type App struct {
	*database.Gateway
	Surveys *survey.Service
	config.Config
}
