// Package autoapi generates an Express web server around the default export
// of a JavaScript or TypeScript module.
//
// Every function reachable from the default export becomes a route. The
// export's object structure becomes the URL structure:
//
//	export default {
//		math: { square, cube },
//		greet: (name: string) => `hello ${name}`,
//	};
//
// produces GET /math/square, GET /math/cube and GET /greet. Parameter and
// return types decide the HTTP method: functions whose parameters are at most
// one string, number or boolean are served with GET and read their argument
// from the query string; everything else is served with POST and reads a
// JSON body.
//
// # Building
//
// Build checks the project directory, type-checks the entry file and
// synthesizes the server:
//
//	res, err := autoapi.Build(ctx, autoapi.Options{Root: "./api", Entry: "index.ts"})
//	if err != nil {
//		return err
//	}
//	err = res.WriteTo(ctx, sink.NewFilesystemSink("./api"))
//
// The Result holds the server source, the package.json with the server's
// dependencies merged in, the route metadata tree and, for TypeScript, a
// tsconfig.json.
//
// # Errors
//
// Every failure aborts the build and is returned as an *apierr.Error whose
// Code names the failing check. Errors raised while synthesizing a single
// function carry the function's call alias in Function.
package autoapi
