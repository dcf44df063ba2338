package synth

import (
	"encoding/json"
	"text/template"
)

var funcs = template.FuncMap{
	"quote": quote,
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

type handlerParam struct {
	Name     string
	Local    string
	Source   string
	Optional bool
	Coerce   string // "number", "boolean" or empty
}

type handlerData struct {
	Method   Method
	Path     string
	Typed    bool
	Promise  bool
	DebugVar string
	Params   []handlerParam
	Call     string
}

var handlerTemplate = template.Must(template.New("handler").Funcs(funcs).Parse(handlerSource))

const handlerSource = `app.{{.Method}}({{quote .Path}}, (req, res) => {
{{- range .Params}}
  let {{.Local}}{{if $.Typed}}: any{{end}} = {{.Source}};
{{- if not .Optional}}
  if ({{.Local}} === undefined) {
    res.status(400).send({ error: {{quote (printf "Missing parameter %s" .Name)}} });
    return;
  }
{{- end}}
{{- if eq .Coerce "number"}}
  if ({{.Local}} !== undefined) {
    {{.Local}} = Number({{.Local}});
    if (Number.isNaN({{.Local}})) {
      res.status(400).send({ error: {{quote (printf "Invalid parameter %s" .Name)}} });
      return;
    }
  }
{{- else if eq .Coerce "boolean"}}
  if ({{.Local}} !== undefined) {{.Local}} = {{.Local}} === "true";
{{- end}}
{{- end}}
  try {
    const response = {{.Call}};
{{- if .Promise}}
    if (isPromise(response)) {
      response.then(
        (r{{if .Typed}}: any{{end}}) => res.send({ response: r }),
        (e{{if .Typed}}: any{{end}}) =>
          res.status(500).send({ error: {{.DebugVar}} === "true" ? e.stack : "An error occurred" })
      );
    } else {
      res.send({ response });
    }
{{- else}}
    res.send({ response });
{{- end}}
  } catch (e{{if .Typed}}: any{{end}}) {
    if ({{.DebugVar}} === "true") res.status(500).send({ error: e.stack });
    else res.status(500).send({ error: "An unknown error occurred" });
  }
});
`

type serverData struct {
	Generated      string
	Typed          bool
	Import         string
	Post           bool
	Promise        bool
	RequestLogging bool
	Routes         string
	Port           int
}

var serverTemplate = template.Must(template.New("server").Funcs(funcs).Parse(serverSource))

const serverSource = `/* This is an automatic API generated by autoapi
Generated {{.Generated}} */
{{if .Typed -}}
import __API from {{quote .Import}};
import express from "express";
{{- if .Promise}}
import isPromise from "is-promise";
{{- end}}
{{- if .Post}}
import bodyParser from "body-parser";
{{- end}}
{{- if .RequestLogging}}
import morgan from "morgan";
{{- end}}
{{- else -}}
const __API = require({{quote .Import}});
const express = require("express");
{{- if .Promise}}
const isPromise = require("is-promise");
{{- end}}
{{- if .Post}}
const bodyParser = require("body-parser");
{{- end}}
{{- if .RequestLogging}}
const morgan = require("morgan");
{{- end}}
{{- end}}

const app = express();
{{- if .Post}}
app.use(bodyParser.json());
{{- end}}
{{- if .RequestLogging}}
app.use(morgan("dev"));
{{- end}}

{{.Routes}}
const port = process.env.PORT || {{.Port}};
app.listen(port, () => console.log(` + "`API listening at http://localhost:${port}`" + `));
`
