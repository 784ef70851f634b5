// Command encuestas answers a survey from the terminal and prints its results.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Joss220r/competencia-Desarrollo/client"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/model"
)

func main() {
	log.SetLevel(log.WarnLevel)

	fs := flag.NewFlagSet("encuestas", flag.ExitOnError)
	api := fs.String("api", "http://localhost:5088", "base URL of the survey API")
	respondent := fs.String("usuario", "", "respondent id (defaults to the saved one, or a new random id)")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "timeout of each request")
	resultsOnly := fs.Bool("resultados", false, "only show the results of the survey")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: encuestas [flags] <tipo 1-3>")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	surveyType, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		log.Fatal("encuestas.args: tipo must be a number:", fs.Arg(0))
	}

	c, err := client.New(*api, client.WithTimeout(*timeout))
	if err != nil {
		log.Fatal("encuestas.client:", err)
	}

	ctx := context.Background()
	survey, err := c.GetSurvey(ctx, surveyType)
	if err != nil {
		fatal("encuestas.get_survey", err)
	}

	if !*resultsOnly {
		id, err := resolveRespondent(*respondent)
		if err != nil {
			log.Fatal("encuestas.respondent:", err)
		}

		responses, err := ask(os.Stdin, os.Stdout, survey)
		if err != nil {
			log.Fatal("encuestas.input:", err)
		}

		result, err := c.Submit(ctx, model.ResponseSubmission{RespondentID: id, Responses: responses})
		if err != nil {
			fatal("encuestas.submit", err)
		}
		fmt.Printf("\n%s: %s, %d respuestas\n", result.Message, result.RespondentID, result.Stored)
	}

	raw, err := c.Summary(ctx, survey.ID)
	if err != nil {
		fatal("encuestas.summary", err)
	}
	view, err := client.BuildResults(raw)
	if err != nil {
		log.Fatal("encuestas.summary.parse:", err)
	}
	printResults(os.Stdout, survey.Title, view)
}

// resolveRespondent prefers the flag, then the saved id, then a fresh one,
// and remembers whichever is used.
func resolveRespondent(flagValue string) (string, error) {
	store, err := client.DefaultRespondentStore()
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(flagValue)
	if id == "" {
		if id, err = store.Load(); err != nil {
			return "", err
		}
	}
	if id == "" {
		id = "anon-" + uuid.NewString()
	}

	if err := store.Save(id); err != nil {
		log.Warnf("encuestas.respondent.save: %s", err)
	}
	return id, nil
}

// ask lists every question and reads the chosen option numbers, one line per
// question. Every option is answered: 1 when chosen, 0 otherwise.
func ask(in io.Reader, out io.Writer, survey *model.Survey) ([]model.Response, error) {
	fmt.Fprintf(out, "%s\n%s\n", survey.Title, survey.Description)

	scanner := bufio.NewScanner(in)
	var responses []model.Response
	for qi, q := range survey.Questions {
		fmt.Fprintf(out, "\n%d. %s\n", qi+1, q.Text)
		for oi, o := range q.Options {
			fmt.Fprintf(out, "   [%d] %s\n", oi+1, o.Text)
		}
		if len(q.Options) == 0 {
			continue
		}

		for {
			fmt.Fprint(out, "   opciones (separadas por coma): ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, err
				}
				return nil, io.ErrUnexpectedEOF
			}
			chosen, err := parseChoices(scanner.Text(), len(q.Options))
			if err != nil {
				fmt.Fprintln(out, "  ", err)
				continue
			}
			for oi, o := range q.Options {
				selected := 0
				if chosen[oi] {
					selected = 1
				}
				responses = append(responses, model.Response{OptionID: o.ID, Selected: selected})
			}
			break
		}
	}
	return responses, nil
}

func parseChoices(line string, n int) (map[int]bool, error) {
	chosen := make(map[int]bool)
	for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
		k, err := strconv.Atoi(field)
		if err != nil || k < 1 || k > n {
			return nil, fmt.Errorf("opción inválida %q: use números entre 1 y %d", field, n)
		}
		chosen[k-1] = true
	}
	return chosen, nil
}

func printResults(out io.Writer, title string, view client.ResultsView) {
	fmt.Fprintf(out, "\nResultados: %s\n", title)
	if view.Respondents != nil {
		fmt.Fprintf(out, "Participantes: %d\n", *view.Respondents)
	}
	printPanel(out, view.General)
	for _, p := range view.Questions {
		printPanel(out, p)
	}
	if view.Illustrative() {
		fmt.Fprintln(out, "\n* porcentaje ilustrativo: el resumen no trae totales")
	}
}

func printPanel(out io.Writer, p client.Panel) {
	mark := ""
	if p.Illustrative {
		mark = " *"
	}
	bar := strings.Repeat("#", p.Percent/5) + strings.Repeat(".", 20-p.Percent/5)
	fmt.Fprintf(out, "\n%s\n  [%s] %d%%%s (%s)\n", p.Title, bar, p.Percent, mark, p.Indicator)
	for _, o := range p.Options {
		fmt.Fprintf(out, "    %-30s %3d  %3d%%\n", o.Text, o.Count, o.Percent)
	}
}

func fatal(code string, err error) {
	if errors.Is(err, client.ErrTimeout) {
		log.Fatal(code+": la petición tardó demasiado tiempo, inténtalo de nuevo")
	}
	log.Fatal(code+":", err)
}
