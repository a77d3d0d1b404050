package cfg

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

type argInfo struct {
	argPtr interface{}
	set    bool
}

func registerTypes(fs *flag.FlagSet, moduleOptions interface{}, argPointers map[string]*argInfo) error {
	moduleOptionsType := reflect.TypeOf(moduleOptions).Elem()

	numFields := moduleOptionsType.NumField()

	moduleOptionsValue := reflect.ValueOf(moduleOptions).Elem()

	// register flags for the module specific options
	for i := 0; i < numFields; i++ {
		field := moduleOptionsType.Field(i)

		if field.PkgPath != "" {
			continue
		}

		fieldValue := moduleOptionsValue.Field(i)

		cliName, found := field.Tag.Lookup("cli")
		if !found {
			continue
		}

		cliDescription, found := field.Tag.Lookup("desc")
		if !found {
			cliDescription = ""
		}

		switch fieldValue.Interface().(type) {
		case string, []string, uint64, int:
			strRef := fs.String(cliName, "", cliDescription)
			argPointers[cliName] = &argInfo{argPtr: strRef}
		case bool:
			boolRef := fs.Bool(cliName, false, cliDescription)
			argPointers[cliName] = &argInfo{argPtr: boolRef}
		default:
			return fmt.Errorf("type %s not handled", field.Type)
		}
	}

	return nil
}

func checkForSet(fs *flag.FlagSet, argPointers map[string]*argInfo) {
	fs.Visit(func(f *flag.Flag) {
		if _, found := argPointers[f.Name]; found {
			argPointers[f.Name].set = true
		}
	})
}

func fillOptionsWithMap(options interface{}, argPointers map[string]*argInfo) error {
	t := reflect.TypeOf(options).Elem()
	v := reflect.ValueOf(options).Elem()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		cliName, found := ft.Tag.Lookup("cli")
		if !found {
			continue
		}

		fv := v.Field(i)

		ai, found := argPointers[cliName]
		if !found || !ai.set {
			continue
		}

		switch fv.Interface().(type) {
		case string:
			fv.SetString(*ai.argPtr.(*string))
		case []string:
			args := strings.Split(*ai.argPtr.(*string), ",")
			fv.Set(reflect.ValueOf(args))
		case uint64:
			n, err := strconv.ParseUint(*ai.argPtr.(*string), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for -%s: %v", cliName, err)
			}
			fv.SetUint(n)
		case int:
			n, err := strconv.Atoi(*ai.argPtr.(*string))
			if err != nil {
				return fmt.Errorf("invalid value for -%s: %v", cliName, err)
			}
			fv.SetInt(int64(n))
		case bool:
			fv.SetBool(*ai.argPtr.(*bool))
		}
	}
	return nil
}

// LoadFlags loads 2 sets of options from the command line: global options
// defined by the GlobalOptions struct and local options provided by the
// passed moduleOptions parameter.
func LoadFlags(moduleOptions interface{}, globalOptions *GlobalOptions) error {
	return LoadFlagSet(flag.CommandLine, os.Args[1:], moduleOptions, globalOptions)
}

// LoadFlagSet registers the options on fs and parses args. Values from the
// YAML file passed with -config are applied first and flags set on the
// command line override them.
func LoadFlagSet(fs *flag.FlagSet, args []string, moduleOptions interface{}, globalOptions *GlobalOptions) error {
	argPointers := make(map[string]*argInfo)

	if err := registerTypes(fs, moduleOptions, argPointers); err != nil {
		return err
	}
	if err := registerTypes(fs, globalOptions, argPointers); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	checkForSet(fs, argPointers)

	// special config key needed for loading config file
	// this loads everything from the config file
	if ap, found := argPointers["config"]; found && ap.set {
		configFile := ap.argPtr.(*string)

		configBytes, err := os.ReadFile(*configFile)
		if err != nil {
			return err
		}

		err = yaml.Unmarshal(configBytes, globalOptions)
		if err != nil {
			return err
		}

		err = yaml.Unmarshal(configBytes, moduleOptions)
		if err != nil {
			return err
		}
	}

	if err := fillOptionsWithMap(moduleOptions, argPointers); err != nil {
		return err
	}
	return fillOptionsWithMap(globalOptions, argPointers)
}
